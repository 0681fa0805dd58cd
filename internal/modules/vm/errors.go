package vm

import (
	"context"
	"errors"

	"vmctl/internal/dispatch"
	"vmctl/internal/projection"
	"vmctl/internal/script"
)

var (
	ErrAppNotFound       = errors.New("hypervisor app not found")
	ErrNoOutputFile      = errors.New("no output file specified")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrCapacityExceeded  = errors.New("exceeds host capacity")
	ErrImportExportAbort = errors.New("process failed to complete")

	errUnknownCommand = errors.New("unknown command")
)

// ErrorCode переводит ошибку в машиночитаемый код ответа.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, dispatch.ErrNotFound):
		return "vm_not_found"
	case errors.Is(err, ErrAppNotFound):
		return "app_not_found"
	case errors.Is(err, ErrImportExportAbort):
		return "process_failed"
	case errors.Is(err, projection.ErrMalformedReply):
		return "malformed_reply"
	case errors.Is(err, projection.ErrEmptyReply):
		return "empty_reply"
	case errors.Is(err, projection.ErrNumericDecoding):
		return "numeric_decoding"
	case errors.Is(err, script.ErrTransport):
		return "transport_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, errUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrNoOutputFile),
		errors.Is(err, ErrCapacityExceeded), errors.Is(err, script.ErrUnsafeArgument),
		errors.Is(err, script.ErrArgumentCount):
		return "bad_arguments"
	default:
		return "internal_error"
	}
}
