// Package common defines sentinel errors shared by the repositories, services
// and transport layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level errors.
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorValidation       = errors.New("validation error")
	ErrorIllegalOperation = errors.New("illegal operation")
)

// FieldError is a user-visible failure bound to one or more input fields.
// Kind is one of the sentinels above, so errors.Is(err, ErrorConflict) holds
// for a FieldError of that kind.
type FieldError struct {
	Kind    error
	Fields  []string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ","))
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *FieldError) Is(target error) bool {
	return target == e.Kind
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewFieldError builds a FieldError of the given kind for a single field.
func NewFieldError(kind error, field, message string) *FieldError {
	return &FieldError{Kind: kind, Fields: []string{field}, Message: message}
}

// Validation is shorthand for a validation FieldError.
func Validation(field, message string) *FieldError {
	return NewFieldError(ErrorValidation, field, message)
}

// Conflict is shorthand for a conflict FieldError wrapping the cause.
func Conflict(field, message string, cause error) *FieldError {
	e := NewFieldError(ErrorConflict, field, message)
	e.Err = cause
	return e
}

// Fields returns the offending field names of err, if it is a FieldError.
func Fields(err error) []string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Fields
	}
	return nil
}
