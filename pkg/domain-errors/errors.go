// Package derrors defines the domain error taxonomy shared by services,
// stores, and transport layers.
//
// Services attach a Code to every error they return so callers can branch on
// error kind without string matching. Stores return sentinel errors
// (pkg/platform/sentinel) and services translate them into coded errors at the
// boundary.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks malformed input fields. Never retried, surfaced
	// to the caller immediately.
	CodeValidation Code = "validation"

	// CodeInvalidInput marks an identifier or parameter that failed parsing
	// at a trust boundary.
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks a structurally valid but unusable request.
	CodeBadRequest Code = "bad_request"

	// CodeConflict marks resource contention: a subdomain already taken or
	// an idempotency key currently in progress.
	CodeConflict Code = "conflict"

	// CodeNotFound marks an unknown tenant or subdomain lookup.
	CodeNotFound Code = "not_found"

	// CodeForbidden marks a rejected admin action.
	CodeForbidden Code = "forbidden"

	// CodeInvalidState marks an illegal lifecycle edge: the aggregate or
	// saga is not in a state that permits the requested transition.
	CodeInvalidState Code = "invalid_state"

	// CodeInvariantViolation marks a broken aggregate invariant detected
	// during construction or mutation.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInfrastructure marks a failed provisioning or infrastructure
	// operation. The saga recovers by transitioning to FAILED.
	CodeInfrastructure Code = "infrastructure"

	// CodeTimeout marks a deadline exceeded inside a unit of work.
	CodeTimeout Code = "timeout"

	// CodeInternal marks unexpected failures that should not leak detail.
	CodeInternal Code = "internal"
)

// Error carries a code, a message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error, preserving the cause
// for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
