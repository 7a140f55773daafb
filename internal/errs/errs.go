package errs

import (
	"errors"
	"net/http"
)

// Code is an application error code.
type Code string

const (
	// InvalidArgument marks input rejected before any remote call (empty word, bad id).
	InvalidArgument Code = "invalid_argument"
	// NotFound marks a word id absent from the working set or the server collection.
	NotFound Code = "not_found"
	// FailedPrecondition marks an operation refused in the current state.
	FailedPrecondition Code = "failed_precondition"
	// Unavailable marks a transport or remote service failure.
	Unavailable Code = "unavailable"
	// Persistence marks a local mirror read or write failure.
	Persistence Code = "persistence"
	// RateLimited marks a request rejected by the server's limiter.
	RateLimited Code = "rate_limited"
	Internal    Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns a user-facing error message.
// If the error has no typed wrapper, returns "internal error" to prevent
// leaking raw DB errors, file paths, or connection strings to API responses.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return Is(err, InvalidArgument) }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return Is(err, NotFound) }

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return Is(err, Unavailable) }

// IsPersistence reports whether err is a mirror failure.
func IsPersistence(err error) bool { return Is(err, Persistence) }

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case FailedPrecondition:
		return http.StatusConflict
	case RateLimited:
		return http.StatusTooManyRequests
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
