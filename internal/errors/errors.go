// Package errors provides standardized domain errors with codes for watchstate.
//
// Usage:
//
//	// In the facade - return typed errors
//	if state != lifecycle.Idle {
//	    return errors.InvalidStatef("cannot start from %s", state)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrAcquisition) {
//	    log.Warn("root is not watchable", "error", err)
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the module.
const (
	CodeInvalidState Code = "INVALID_STATE"
	CodeAcquisition  Code = "ACQUISITION"
	CodeValidation   Code = "VALIDATION"
	CodeInternal     Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Details any
	cause   error
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrInvalidState = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrAcquisition  = &Error{Code: CodeAcquisition, Message: "acquisition failed"}
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation error"}
)

// InvalidState creates an invalid state error.
func InvalidState(msg string) *Error {
	return &Error{Code: CodeInvalidState, Message: msg}
}

// InvalidStatef creates an invalid state error with formatted message.
func InvalidStatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Acquisitionf wraps a notifier failure with a formatted message.
func Acquisitionf(err error, format string, args ...any) *Error {
	return &Error{Code: CodeAcquisition, Message: fmt.Sprintf(format, args...), cause: err}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
