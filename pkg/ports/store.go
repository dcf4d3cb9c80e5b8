package ports

import (
	"context"

	"github.com/ferrou/turnstile/pkg/domain"
)

// CheckoutStore is the persistence callback surface for checkout sessions.
// The engine core never blocks on I/O; the external layer calls Save after a
// successful transition to durably record the new step.
//
// Save enforces optimistic concurrency: the checkout's Version must match the
// stored version, otherwise the save fails with domain.ErrVersionConflict and
// nothing is written. On success the stored copy carries Version+1, and the
// passed checkout is updated to match. A checkout with Version 0 is treated as
// a first save and must not already exist.
type CheckoutStore interface {
	Save(ctx context.Context, c *domain.Checkout) error

	// Load retrieves a checkout by ID.
	// Returns domain.ErrCheckoutNotFound if the ID does not exist.
	Load(ctx context.Context, id string) (*domain.Checkout, error)

	// Delete removes a checkout.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of stored checkouts.
	List(ctx context.Context) ([]string, error)
}
