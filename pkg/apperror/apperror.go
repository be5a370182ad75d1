// Package apperror defines the typed business errors surfaced by the
// services. Handlers map codes to HTTP statuses; services never return raw
// SQL errors to callers.
package apperror

import (
	"errors"
	"fmt"
)

// Code classifies an application error.
type Code string

const (
	CodeValidation           Code = "VALIDATION"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeNotAvailable         Code = "NOT_AVAILABLE"
	CodeInvalidState         Code = "INVALID_STATE"
	CodeInsufficientSessions Code = "INSUFFICIENT_SESSIONS"
	CodeAlreadyRefunded      Code = "ALREADY_REFUNDED"
	CodeInternal             Code = "INTERNAL"
)

// Error is an application error with a stable code.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(CodeNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(CodeConflict, format, args...)
}

func NotAvailable(format string, args ...interface{}) *Error {
	return newError(CodeNotAvailable, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newError(CodeInvalidState, format, args...)
}

func InsufficientSessions(format string, args ...interface{}) *Error {
	return newError(CodeInsufficientSessions, format, args...)
}

func AlreadyRefunded(format string, args ...interface{}) *Error {
	return newError(CodeAlreadyRefunded, format, args...)
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}

// CodeOf extracts the application code from err, or CodeInternal if err is
// not an application error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
