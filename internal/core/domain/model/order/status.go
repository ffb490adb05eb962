package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status is the order lifecycle state as stored in the Order Store.
//
//	Scheduled ──> Confirmed ──> Preparing ──> Ready ──> PickedUp ──> Delivered
//	    │             │             │
//	    └─────────────┴─────────────┴──> Cancelled
//
// Only the Scheduled -> Confirmed transition is owned by this service; the
// remaining transitions belong to checkout, store and partner workflows.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusPickedUp  Status = "picked_up"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

func validStatuses() map[Status]struct{} {
	return map[Status]struct{}{
		StatusPending:   {},
		StatusScheduled: {},
		StatusConfirmed: {},
		StatusPreparing: {},
		StatusReady:     {},
		StatusPickedUp:  {},
		StatusDelivered: {},
		StatusCancelled: {},
	}
}

// Validate rejects values that are not part of the lifecycle.
func (s Status) Validate() error {
	if _, ok := validStatuses()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", string(s)))
	}
	return nil
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further dispatch activity can apply.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusDelivered
}
