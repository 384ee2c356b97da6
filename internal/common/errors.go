package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. Everything except ErrModelUnavailable aborts a run.
var (
	ErrNoInputFound       = errors.New("no input found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrModelUnavailable   = errors.New("model unavailable")
	ErrWriteFailure       = errors.New("write failure")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode maps an error to a short diagnostic code for CLI output.
func ErrorCode(err error) string {
	var appErr *AppError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &appErr):
		return appErr.Code
	case errors.Is(err, ErrNoInputFound):
		return "NO_INPUT_FOUND"
	case errors.Is(err, ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.Is(err, ErrUnreadableDocument):
		return "UNREADABLE_DOCUMENT"
	case errors.Is(err, ErrModelUnavailable):
		return "MODEL_UNAVAILABLE"
	case errors.Is(err, ErrWriteFailure):
		return "WRITE_FAILURE"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	}
	return "INTERNAL"
}

// ToStatus converts a pipeline error into a gRPC status error.
func ToStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoInputFound), errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrInvalidInput):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrUnreadableDocument):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrModelUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	}
	return InternalError(err.Error())
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func FailedPreconditionError(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

func UnavailableError(message string) error {
	return status.Error(codes.Unavailable, message)
}
