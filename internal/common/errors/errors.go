// Package errors defines the engine-wide error taxonomy. Callers classify
// failures with errors.Is against the sentinel kinds and decide whether to
// retry, continue a batch, or abort.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrapped errors created by the constructors below match these
// via errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict error")
	ErrNotFound   = errors.New("not found")
	ErrAdapter    = errors.New("adapter error")
	ErrStorage    = errors.New("storage error")
)

type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *kindError) Unwrap() error { return e.err }

func (e *kindError) Is(target error) bool { return target == e.kind }

// Validation marks malformed or out-of-range input.
func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Conflict marks a uniqueness violation on mapping creation.
func Conflict(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// NotFound marks an operation against a record that does not exist.
func NotFound(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Adapter wraps a failure from an external-system adapter. These are recorded
// per mapping and never abort bulk operations.
func Adapter(err error, format string, args ...any) error {
	return &kindError{kind: ErrAdapter, msg: fmt.Sprintf(format, args...), err: err}
}

// Storage wraps a persistence-layer failure. These abort the current operation
// and surface to the caller.
func Storage(err error, format string, args ...any) error {
	return &kindError{kind: ErrStorage, msg: fmt.Sprintf(format, args...), err: err}
}
