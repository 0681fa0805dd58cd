package projection

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedReply  = errors.New("malformed reply")
	ErrEmptyReply      = errors.New("empty reply")
	ErrNumericDecoding = errors.New("numeric decoding failed")
)

// DecodingError описывает структурное расхождение ответа и проекции.
// Kind равен ErrMalformedReply или ErrEmptyReply.
type DecodingError struct {
	Kind   error
	Detail string
}

func (e *DecodingError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *DecodingError) Unwrap() error {
	return e.Kind
}

// NumericDecodingError ответ ожидался числом, но не разобрался.
type NumericDecodingError struct {
	Raw string
}

func (e *NumericDecodingError) Error() string {
	return fmt.Sprintf("%v: %q", ErrNumericDecoding, e.Raw)
}

func (e *NumericDecodingError) Unwrap() error {
	return ErrNumericDecoding
}

func malformed(format string, args ...any) error {
	return &DecodingError{Kind: ErrMalformedReply, Detail: fmt.Sprintf(format, args...)}
}
