package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers branch on these with errors.Is; anything that matches
// neither is an infrastructure failure.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// ErrDuplicateEmail is returned by record stores when the email uniqueness
// constraint rejects a write.
var ErrDuplicateEmail = errors.New("email already in use")

// kindError carries a caller-facing message and matches its kind via errors.Is.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewValidationError returns an error of kind ErrValidation whose message is
// safe to show to the caller.
func NewValidationError(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NewNotFoundError returns an error of kind ErrNotFound.
func NewNotFoundError(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}
