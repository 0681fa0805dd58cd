package script

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedTemplate = errors.New("malformed command template")
	ErrArgumentCount     = errors.New("template argument count mismatch")
	ErrUnsafeArgument    = errors.New("unsafe template argument")

	// ErrTransport интерпретатор завершился с ненулевым кодом.
	ErrTransport = errors.New("transport failure")
)

// ProcessError ненулевой код выхода osascript.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%v: exit %d: %s", ErrTransport, e.ExitCode, msg)
}

func (e *ProcessError) Is(target error) bool {
	return target == ErrTransport
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
