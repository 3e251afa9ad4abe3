// Package apperr defines the error taxonomy shared by the interview services.
// Every operation either succeeds or returns a single *Error carrying a
// machine-readable Kind and a human-readable message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	// KindValidation marks missing or malformed input. Not retryable.
	KindValidation Kind = "validation"
	// KindNotFound marks a referenced interview, report or user that does not exist.
	KindNotFound Kind = "not_found"
	// KindUpstreamGeneration marks a failed or empty Generator/audio call.
	KindUpstreamGeneration Kind = "upstream_generation"
	// KindConflict marks an operation rejected because of the interview's current
	// state or because another worker holds its lease.
	KindConflict Kind = "conflict"
	// KindInternal marks persistence and other unexpected failures.
	KindInternal Kind = "internal"
)

// Error is the single error type surfaced by the services.
type Error struct {
	Kind    Kind
	Op      string
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports a missing or malformed input field.
func Validation(op, field, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: message}
}

// NotFound reports a missing entity.
func NotFound(op, what, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s not found: %s", what, id)}
}

// Upstream wraps a Generator or audio failure.
func Upstream(op string, cause error) *Error {
	return &Error{Kind: KindUpstreamGeneration, Op: op, Message: "generation failed", Cause: cause}
}

// UpstreamEmpty reports a Generator call that returned no usable text.
func UpstreamEmpty(op, what string) *Error {
	return &Error{Kind: KindUpstreamGeneration, Op: op, Message: fmt.Sprintf("empty %s from generator", what)}
}

// Conflict reports an operation that is not allowed right now.
func Conflict(op, message string) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message}
}

// Internal wraps a persistence or other unexpected failure.
func Internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal error", Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the human-readable message of err without the cause chain
// for *Error values, and err.Error() otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Field != "" {
			return fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
		return e.Message
	}
	return err.Error()
}
