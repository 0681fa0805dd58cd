package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("entity not found")

	errUnexpectedType    = errors.New("unexpected decoded type")
	errInvalidTransition = errors.New("invalid dispatch transition")
)

// NotFoundError идентификатор не совпал ни с id, ни с именем.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("vm %s was not found", e.Identifier)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
