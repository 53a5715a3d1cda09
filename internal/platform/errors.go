// Package platform defines the error taxonomy shared by services, providers
// and HTTP handlers. Handlers map these to status codes in one place.
package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict marks a uniqueness violation at the provider or the store.
	ErrConflict = errors.New("already exists")
	// ErrNotFound marks an absent domain or record. Idempotent deletes treat
	// it as success and never surface it.
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects caller input before any network or database call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProviderError carries an upstream DNS API failure together with the HTTP
// status the provider answered with, so callers can branch on it without
// string matching.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %s (status %d)", e.Message, e.StatusCode)
}

// PartialFailure records that compensation itself failed after a primary
// failure. The primary error stays visible to the caller; the compensation
// error is never allowed to mask it.
type PartialFailure struct {
	Primary      error
	Compensation error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%v (compensation also failed: %v)", e.Primary, e.Compensation)
}

func (e *PartialFailure) Unwrap() error { return e.Primary }
