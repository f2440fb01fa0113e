// Package apperr defines the error kinds surfaced by the planning core.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match them with errors.Is.
var (
	ErrValidation    = errors.New("validation")
	ErrStateConflict = errors.New("state conflict")
	ErrPersistence   = errors.New("persistence")
	ErrPrecondition  = errors.New("precondition")
	ErrNotFound      = errors.New("not found")
)

// Error carries a kind, the failing operation and an advisory message.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool { return e.Kind == target }

// Validation builds an ErrValidation error.
func Validation(op, message string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: message}
}

// Conflict builds an ErrStateConflict error.
func Conflict(op, message string) error {
	return &Error{Kind: ErrStateConflict, Op: op, Message: message}
}

// Persistence wraps a storage failure.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Message: "storage failure", Err: err}
}

// Precondition builds an ErrPrecondition error.
func Precondition(op, message string) error {
	return &Error{Kind: ErrPrecondition, Op: op, Message: message}
}

// NotFound builds an ErrNotFound error.
func NotFound(op, message string) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: message}
}

// Message returns the advisory text of err if it is an *Error, else err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
