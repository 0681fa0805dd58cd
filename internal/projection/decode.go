package projection

import "strings"

const (
	// Sentinel текст приложения для отсутствующего значения.
	Sentinel = "missing value"
	// StandIn подставляется вместо Sentinel.
	StandIn = "-"

	separator = ","
)

// Mode режим декодирования.
type Mode int

const (
	Single Mode = iota
	List
)

func (m Mode) String() string {
	if m == List {
		return "list"
	}
	return "single"
}

// Split режет ответ на значения, обрезает пробелы и нормализует Sentinel.
// Пустой ответ дает ноль значений.
func Split(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, separator)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, clean(part))
	}
	return tokens
}

func clean(token string) string {
	return strings.ReplaceAll(strings.TrimSpace(token), Sentinel, StandIn)
}

// Decode раскладывает плоский ответ по записям согласно проекции.
// В режиме Single результат содержит ровно одну запись.
func Decode(raw string, p Projection, mode Mode) (RecordSet, error) {
	tokens := Split(raw)
	fields := p.Included()
	n := len(fields)
	if n == 0 {
		return nil, malformed("projection has no included fields")
	}
	if len(tokens)%n != 0 {
		return nil, malformed("%d values do not fit %d fields", len(tokens), n)
	}
	k := len(tokens) / n

	if mode == Single {
		if k == 0 {
			return nil, &DecodingError{Kind: ErrEmptyReply}
		}
		if k != 1 {
			return nil, malformed("single record requested, reply holds %d", k)
		}
		var rec Record
		for i, name := range fields {
			rec.Set(name, tokens[i])
		}
		return RecordSet{rec}, nil
	}

	records := make(RecordSet, k)
	pos := 0
	for _, name := range fields {
		for i := 0; i < k; i++ {
			records[i].Set(name, tokens[pos])
			pos++
		}
	}

	out := make(RecordSet, 0, k)
	for _, rec := range records {
		if rec.Blank() {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeOne декодирует ровно одну запись.
func DecodeOne(raw string, p Projection) (Record, error) {
	set, err := Decode(raw, p, Single)
	if err != nil {
		return Record{}, err
	}
	return set[0], nil
}

// DecodeList декодирует набор записей.
func DecodeList(raw string, p Projection) (RecordSet, error) {
	return Decode(raw, p, List)
}
