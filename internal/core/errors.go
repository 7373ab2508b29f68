package core

import (
	"errors"
	"fmt"
)

var (
	ErrFieldLocked       = errors.New("field locked by gameday status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("concurrent write conflict")
)

// ValidationError reports malformed or out-of-range input for one field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return "invalid " + e.Field
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidTransitionError is returned for advance from Archived or revert from NotStarted.
type InvalidTransitionError struct {
	From      Status
	Direction string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status %s", e.Direction, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
