// Package ports defines the contracts between the dispatch core and the
// infrastructure it consumes: the Order Store, the store catalog, the partner
// locator, the notification transport and the deferred-expansion timer.
package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// OrderRepository is the Order Store surface used by dispatch. Writes are
// conditional: when the stored order no longer satisfies the write's
// precondition the call returns order.ErrStaleOrder and changes nothing.
type OrderRepository interface {
	// Add persists a new order. Used by checkout tooling and tests; dispatch
	// itself never creates orders.
	Add(ctx context.Context, aggregate *order.Order) error

	// Get reads the order fresh from storage.
	// Returns errs.ErrObjectNotFound when the id is unknown.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// ApplyAssignmentPatch merges the non-nil fields of patch into the stored
	// assignment info. It only applies while the order is unclaimed and not
	// cancelled and, for an expanded patch, still in the priority phase.
	ApplyAssignmentPatch(ctx context.Context, id kernel.UUID, patch order.AssignmentPatch) error

	// SavePromotion persists a promoted order's status, confirmed tracking
	// entry and modification window. It only applies while the stored status
	// is still scheduled; an existing confirmed tracking entry is kept.
	SavePromotion(ctx context.Context, aggregate *order.Order) error

	// FindDueScheduled returns scheduled orders whose slot is at or before now,
	// oldest slot first.
	FindDueScheduled(ctx context.Context, now time.Time) ([]*order.Order, error)
}
