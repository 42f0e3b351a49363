// Package domainerrors carries the error taxonomy that crosses service
// boundaries. Stores return sentinel errors; services translate them into a
// coded Error so transports can pick a response class without inspecting
// store-specific types.
package domainerrors

import "errors"

// Code classifies an Error for transport mapping.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal_error"
	CodeValidation   Code = "validation_error"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
)

// Error is a coded, caller-safe error. Error() returns Message alone. The
// cause is held for server-side logging through CauseOf and is not part of
// the unwrap chain, so errors.Is and errors.As cannot reach store types.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a coded error without an underlying cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and caller-safe message to err. err is retained for
// logging only.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// HasCode reports whether the outermost Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// CodeOf returns the outermost Error code in err's chain, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message for err. Errors without a code
// never leak their text.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// CauseOf returns the cause recorded by Wrap, or nil. It is meant for log
// attributes and must not be rendered to callers.
func CauseOf(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de.cause
	}
	return nil
}
