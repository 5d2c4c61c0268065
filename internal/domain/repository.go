package domain

import (
	"context"
	"time"
)

// Filter restricts payment listings. Nil or zero fields are ignored. From
// and To bound CreatedAt inclusively on both ends. Page is zero-indexed and
// Size must be at least 1.
type Filter struct {
	Status     *Status
	CustomerID string
	From       *time.Time
	To         *time.Time
	Page       int
	Size       int
}

// Store is the persistence port for payments. Implementations must enforce
// reference uniqueness as an atomic check-and-insert and must apply status
// transitions with per-row atomicity, so that of two racing updates on the
// same id at most one succeeds.
type Store interface {
	// Save persists a new payment, assigning its ID. A reference collision
	// yields DuplicateReferenceError.
	Save(ctx context.Context, p *Payment) (*Payment, error)

	// FindByID returns the payment or NotFoundError.
	FindByID(ctx context.Context, id string) (*Payment, error)

	ExistsByReference(ctx context.Context, reference string) (bool, error)

	// FindByFilters returns the requested page in stable creation order.
	FindByFilters(ctx context.Context, f Filter) ([]Payment, error)

	// CountByFilters counts all rows matching f, ignoring Page and Size.
	CountByFilters(ctx context.Context, f Filter) (int64, error)

	// TransitionStatus atomically moves the payment to target if and only
	// if it is still PENDING, returning the updated payment. A raced or
	// illegal update yields InvalidTransitionError carrying the status the
	// store observed; a missing id yields NotFoundError.
	TransitionStatus(ctx context.Context, id string, target Status) (*Payment, error)
}
