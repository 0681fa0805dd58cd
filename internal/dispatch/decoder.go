package dispatch

import "vmctl/internal/projection"

// Decoder превращает сырой ответ в результат нужного вида.
type Decoder interface {
	Decode(raw string) (any, error)
}

// DecoderFunc адаптер функции к Decoder.
type DecoderFunc func(raw string) (any, error)

func (f DecoderFunc) Decode(raw string) (any, error) { return f(raw) }

// One декодирует одну запись (projection.Record).
func One(p projection.Projection) Decoder {
	return DecoderFunc(func(raw string) (any, error) {
		return projection.DecodeOne(raw, p)
	})
}

// List декодирует набор записей (projection.RecordSet).
func List(p projection.Projection) Decoder {
	return DecoderFunc(func(raw string) (any, error) {
		return projection.DecodeList(raw, p)
	})
}

// Bool декодирует признак успеха.
func Bool() Decoder {
	return DecoderFunc(func(raw string) (any, error) {
		return projection.Bool(raw), nil
	})
}

// Int декодирует целое число.
func Int() Decoder {
	return DecoderFunc(func(raw string) (any, error) {
		return projection.Int(raw)
	})
}

// Text возвращает ответ как есть, без крайних пробелов.
func Text() Decoder {
	return DecoderFunc(func(raw string) (any, error) {
		return projection.Text(raw), nil
	})
}

// Tokens возвращает ответ как список значений ([]string).
func Tokens() Decoder {
	return DecoderFunc(func(raw string) (any, error) {
		return projection.Tokens(raw), nil
	})
}

// Progress декодирует прогресс длительной операции в процентах.
func Progress() Decoder {
	return DecoderFunc(func(raw string) (any, error) {
		return projection.Progress(raw)
	})
}
