package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is wrapped by errors that refer to a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrStale is wrapped when a caller's copy of a transaction no longer
	// matches the stored one.
	ErrStale = errors.New("stale transaction")
)

// ValidationError rejects a mutation request before any state changes.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound builds a ValidationError for a missing entity.
func NotFound(entity, id string) error {
	return &ValidationError{Field: entity, Message: fmt.Sprintf("%q", id), Err: ErrNotFound}
}

// ReferentialIntegrityError rejects removing an entity that is still
// referenced.
type ReferentialIntegrityError struct {
	Entity       string
	ID           string
	ReferencedBy []string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s is referenced by %d transaction(s)", e.Entity, e.ID, len(e.ReferencedBy))
}

// ExternalServiceError reports a failure in the AI backend, the persistence
// medium or an export renderer.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// External wraps err as an ExternalServiceError. It returns nil for nil.
func External(service, op string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{Service: service, Op: op, Err: err}
}

// IsRetryable reports whether err came from an external service and may
// succeed if attempted again.
func IsRetryable(err error) bool {
	var ext *ExternalServiceError
	return errors.As(err, &ext)
}
