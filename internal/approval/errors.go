package approval

import (
	"errors"
	"fmt"
)

// ErrNoActiveStep is returned when the workflow holds no step the action
// could apply to, even after the defensive fallback search. Callers should
// instruct the client to resubmit the report.
var ErrNoActiveStep = errors.New("no active approval step")

// ValidationError reports a missing or unusable request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthorizationError reports that the actor may not act on the current step
type AuthorizationError struct {
	ActorID string
	Hint    string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("actor %s is not authorized to act on the current step", e.ActorID)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// NotFoundError reports a missing report, employee, or revision note
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// PersistenceError wraps a storage failure. When one is returned, none of the
// in-memory mutation has been committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
