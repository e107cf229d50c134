package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced at the API boundary.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrUpstream   = errors.New("upstream failure")
	ErrValidation = errors.New("validation failure")
)

// Error attaches a stable kind and a human-readable message to a cause.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(kind error, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}

func notFound(op, msg string, cause error) error   { return newError(ErrNotFound, op, msg, cause) }
func conflict(op, msg string, cause error) error   { return newError(ErrConflict, op, msg, cause) }
func upstream(op, msg string, cause error) error   { return newError(ErrUpstream, op, msg, cause) }
func validation(op, msg string, cause error) error { return newError(ErrValidation, op, msg, cause) }

// KindOf returns the kind sentinel of err, or nil for unclassified errors.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []error{ErrNotFound, ErrConflict, ErrUpstream, ErrValidation} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// MessageOf returns the user-facing message of a classified error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
