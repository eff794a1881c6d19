// Package dErrors provides coded domain errors shared by all services.
//
// Business outcomes carry a Code so handlers and callers can branch on the
// category without string matching. Infrastructure facts (not found, already
// used) live in pkg/platform/sentinel; stores return those and services
// translate them into coded errors at the boundary.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks input that parsed but violates a business rule.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks input that failed to parse at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a malformed request body or parameters.
	CodeBadRequest Code = "bad_request"
	// CodeConflict marks a uniqueness or state conflict (name taken, payment
	// already consumed, season not in the required status).
	CodeConflict Code = "conflict"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks a caller without a usable identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a caller whose role does not permit the operation.
	// Authorization failures are fatal: normal client logic is not expected
	// to branch on them.
	CodeForbidden Code = "forbidden"
	// CodeInvariantViolation marks an aggregate invariant breach detected by
	// a model constructor or transition guard.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable marks a dependency that could not be reached; the true
	// state is unknown, not negative.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks a programmer error or infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code.
type Error struct {
	code    Code
	message string
	cause   error
}

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an existing error with a code and message while preserving
// the chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the classification code.
func (e *Error) Code() Code { return e.code }

// Message returns the client-safe message without the wrapped cause.
func (e *Error) Message() string { return e.message }

func (e *Error) Unwrap() error { return e.cause }

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}

// MessageOf returns the outermost client-safe message, or a generic one when
// the error is not a domain error. Wrapped causes are never exposed.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.message
	}
	return "internal error"
}
