package service

import (
	"errors"
	"fmt"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

// ValidationError is returned when a candidate field set is invalid. The
// whole write it guards is rejected; nothing is partially applied.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

func newValidationError(fields map[string]string) *ValidationError {
	fe := FieldErrors{}
	for field, message := range fields {
		fe.add(field, message)
	}
	return &ValidationError{Fields: fe}
}

// InvalidTransitionError is returned when an action is attempted from a
// state that does not allow it.
type InvalidTransitionError struct {
	From   State
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %q is not allowed from state %q", e.Action, e.From)
}

// MalformedActionError is returned for an unrecognized admin action verb.
type MalformedActionError struct {
	Action string
}

func (e *MalformedActionError) Error() string {
	return fmt.Sprintf("unrecognized action %q", e.Action)
}

// PermissionDeniedError is returned by the access guard. Redirect optionally
// names a target the presentation layer should send the caller to, together
// with the user-facing message.
type PermissionDeniedError struct {
	Message  string
	Redirect string
}

func (e *PermissionDeniedError) Error() string {
	if e.Message == "" {
		return "permission denied"
	}
	return e.Message
}

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("registration not found")
	ErrConflict = errors.New("registration conflict")
)
