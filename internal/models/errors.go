package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a definition, event or reminder is absent or
// not owned by the caller.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an instance insert lost a unique-key race and
// the winning row was gone before it could be read back.
var ErrConflict = errors.New("conflict")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
