package projection

import (
	"bytes"
	"encoding/json"
)

// Entry пара ключ-значение записи.
type Entry struct {
	Key   string
	Value any
}

// Record упорядоченное отображение поле -> значение.
// Декодер кладет строки; вызывающий код может дописать вложенные секции через Set.
type Record struct {
	entries []Entry
}

// RecordSet упорядоченный набор записей.
type RecordSet []Record

// Set заменяет значение ключа или добавляет его в конец.
func (r *Record) Set(key string, value any) {
	for i := range r.entries {
		if r.entries[i].Key == key {
			r.entries[i].Value = value
			return
		}
	}
	r.entries = append(r.entries, Entry{Key: key, Value: value})
}

// Get возвращает значение ключа.
func (r Record) Get(key string) (any, bool) {
	for _, e := range r.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// String возвращает строковое значение ключа или "".
func (r Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Keys возвращает ключи в порядке вставки.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Entries возвращает копию пар.
func (r Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Keep оставляет только перечисленные ключи, сохраняя порядок записи.
func (r Record) Keep(keys ...string) Record {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	var out Record
	for _, e := range r.entries {
		if _, ok := allowed[e.Key]; ok {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// Merge дописывает пары other поверх r.
func (r *Record) Merge(other Record) {
	for _, e := range other.entries {
		r.Set(e.Key, e.Value)
	}
}

// Blank сообщает, что все строковые значения пусты или равны заглушке.
func (r Record) Blank() bool {
	for _, e := range r.entries {
		s, ok := e.Value.(string)
		if !ok {
			return false
		}
		if s != "" && s != StandIn {
			return false
		}
	}
	return true
}

// MarshalJSON сохраняет порядок ключей.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
