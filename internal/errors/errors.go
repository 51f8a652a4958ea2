// Package errors carries the error taxonomy every component surfaces instead of
// ad-hoc error strings: InvalidInput, NotFound, IOError, CorruptIndex, ParseError
// and LockPoisoned. Handlers translate an *IndexError into a response envelope;
// the build driver and watcher log it and continue rather than aborting.
package errors

import (
	"fmt"
	"time"

	"github.com/codesift/codesift/internal/types"
)

// ErrorType is one of the taxonomy members.
type ErrorType string

const (
	InvalidInput ErrorType = "invalid_input"
	NotFound     ErrorType = "not_found"
	IOError      ErrorType = "io_error"
	CorruptIndex ErrorType = "corrupt_index"
	ParseError   ErrorType = "parse_error"
	LockPoisoned ErrorType = "lock_poisoned"
)

// IndexError is the single error type every package returns for a taxonomy
// failure. Operation and Path give enough context for a caller to log or
// format a response envelope without re-deriving it.
type IndexError struct {
	Type        ErrorType
	Op          string
	Path        string
	FileID      types.FileID
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// New creates an IndexError of the given type.
func New(t ErrorType, op string, err error) *IndexError {
	return &IndexError{Type: t, Op: op, Underlying: err, Timestamp: time.Now()}
}

// WithPath attaches a file path to the error.
func (e *IndexError) WithPath(path string) *IndexError {
	e.Path = path
	return e
}

// WithFile attaches a FileID to the error.
func (e *IndexError) WithFile(id types.FileID) *IndexError {
	e.FileID = id
	return e
}

// WithRecoverable marks whether the caller may retry.
func (e *IndexError) WithRecoverable(r bool) *IndexError {
	e.Recoverable = r
	return e
}

func (e *IndexError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s failed for %s: %v", e.Type, e.Op, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Type, e.Op, e.Underlying)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *IndexError) Unwrap() error { return e.Underlying }

// IsRecoverable reports whether the caller may retry the operation.
func (e *IndexError) IsRecoverable() bool { return e.Recoverable }

// AsType returns the taxonomy type of err and true when err is itself an
// *IndexError; wrapped errors are not unwrapped, and any other error
// yields ("", false).
func AsType(err error) (ErrorType, bool) {
	ie, ok := err.(*IndexError)
	if !ok {
		return "", false
	}
	return ie.Type, true
}

// MultiError aggregates multiple per-file failures from a batch operation
// (e.g. a build driver walk where individual files fail to parse) without
// aborting the whole batch.
type MultiError struct {
	Errors []error
}

// NewMulti filters nils and wraps the remainder.
func NewMulti(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors (first: %v)", len(e.Errors), e.Errors[0])
	}
}

func (e *MultiError) Unwrap() []error { return e.Errors }
