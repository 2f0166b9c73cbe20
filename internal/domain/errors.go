package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports an operation attempted from an offer
// status that does not permit it.
type InvalidTransitionError struct {
	OfferID   uuid.UUID
	Status    OfferStatus
	Operation string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("offer %s: cannot %s from status %s", e.OfferID, e.Operation, e.Status)
}

// NotFoundError reports a missing offer, revision, transaction or party.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// CascadeError wraps any failure inside the acceptance cascade after the
// precondition check. The whole cascade rolls back; callers see a single
// opaque failure rather than partial state.
type CascadeError struct {
	Step string
	Err  error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("acceptance cascade failed at %s: %v", e.Step, e.Err)
}

func (e *CascadeError) Unwrap() error {
	return e.Err
}
