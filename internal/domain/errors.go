package domain

import "fmt"

// ValidationError reports malformed or out-of-range input. It is raised
// before any store interaction.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateReferenceError reports a create that collided with an existing
// payment reference. No record is written.
type DuplicateReferenceError struct {
	Reference string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("payment with reference %q already exists", e.Reference)
}

// NotFoundError reports a payment id that does not exist in the store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("payment %q not found", e.ID)
}

// InvalidTransitionError reports a status change that violates the payment
// state machine. It carries the attempted (from, to) pair for diagnostics.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition payment from %s to %s", e.From, e.To)
}
