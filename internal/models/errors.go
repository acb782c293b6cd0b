package models

import (
	"errors"
	"fmt"
)

// ErrorKind tells callers why a DataValidationError was raised.
type ErrorKind string

const (
	KindMissingField        ErrorKind = "missing_field"
	KindBadType             ErrorKind = "bad_type"
	KindConstraintViolation ErrorKind = "constraint_violation"
	KindUnknownField        ErrorKind = "unknown_field"
	KindNoID                ErrorKind = "no_id"
)

// DataValidationError is the only error kind the persistence layer reports
// for bad input or rejected writes.
type DataValidationError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *DataValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s on field '%s': %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DataValidationError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a DataValidationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var dve *DataValidationError
	return errors.As(err, &dve) && dve.Kind == kind
}

func missingField(field string) error {
	return &DataValidationError{
		Kind:    KindMissingField,
		Field:   field,
		Message: "is required",
	}
}

func badType(field, format string, args ...any) error {
	return &DataValidationError{
		Kind:    KindBadType,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NoIDError is returned when an update is attempted before create.
func NoIDError() error {
	return &DataValidationError{
		Kind:    KindNoID,
		Field:   "id",
		Message: "update called with empty id",
	}
}

// ConstraintError wraps a store rejection.
func ConstraintError(err error) error {
	return &DataValidationError{
		Kind:    KindConstraintViolation,
		Message: err.Error(),
		Err:     err,
	}
}

// FieldConstraintError reports a rule broken by a single field.
func FieldConstraintError(field, message string) error {
	return &DataValidationError{
		Kind:    KindConstraintViolation,
		Field:   field,
		Message: message,
	}
}
