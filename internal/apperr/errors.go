// Package apperr defines the error kinds shared by the store, the library
// service and the HTTP layer.
//
// Store and service code wraps these sentinels with fmt.Errorf("...: %w") so
// callers can classify failures with errors.Is / errors.As at the boundary.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates that an entity id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers uniqueness violations and deletes blocked by a
	// referential rule.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated is returned when a gated operation has no principal.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when the principal lacks the required capability.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials is the generic login failure. It never reveals
	// whether the username exists.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrFileMissing indicates that a book's blob is absent from storage.
	ErrFileMissing = errors.New("file missing")

	// ErrStorageIO wraps blob store failures other than a missing file.
	ErrStorageIO = errors.New("storage i/o error")
)

// ValidationError carries field-level messages for malformed or missing input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError with a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// HasErrors reports whether any field message was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError names the field that collided with an existing record.
// It matches ErrConflict via errors.Is.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Conflict builds a ConflictError for field.
func Conflict(field, message string) error {
	return &ConflictError{Field: field, Message: message}
}

// RuleError is a refusal by a store-level rule (admin accounts cannot be
// deleted, categories with books cannot be deleted). Kind is the sentinel it
// matches via errors.Is.
type RuleError struct {
	Kind    error
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func (e *RuleError) Is(target error) bool {
	return target == e.Kind
}

// Refuse builds a RuleError of the given kind.
func Refuse(kind error, message string) error {
	return &RuleError{Kind: kind, Message: message}
}

// Message returns the user-facing text for err. Rule and conflict errors
// carry their own wording; other kinds get a fixed message.
func Message(err error) string {
	var rerr *RuleError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	var cerr *ConflictError
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return "Please correct the errors in the form."
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested item was not found."
	case errors.Is(err, ErrUnauthenticated):
		return "Please log in to access this page."
	case errors.Is(err, ErrForbidden):
		return "Access denied. Admin privileges required."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrFileMissing):
		return "File not found. Please contact administrator."
	}
	return "Something went wrong. Please try again."
}

// AsValidation converts a ConflictError into a field-level ValidationError so
// forms can show it inline. Other errors return nil.
func AsValidation(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	var cerr *ConflictError
	if errors.As(err, &cerr) && cerr.Field != "" {
		return NewValidationError(cerr.Field, cerr.Message)
	}
	return nil
}
