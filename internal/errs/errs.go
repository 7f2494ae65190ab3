// Package errs defines the error taxonomy shared by the core services and the
// HTTP/realtime boundaries.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist in the caller's organization.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation, e.g. a duplicate lead email.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition indicates an illegal campaign state change.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnauthenticated indicates a missing, invalid or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError describes malformed input on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
