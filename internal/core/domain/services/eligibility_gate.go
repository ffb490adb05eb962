package services

import (
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/store"
	"dispatch/internal/pkg/errs"
)

// Rejection reasons returned by EligibilityGate. They describe precondition
// no-ops, not failures.
var (
	ErrOrderCancelled     = errors.New("order is cancelled")
	ErrOrderClaimed       = errors.New("order is already claimed by a delivery partner")
	ErrStoreLocationUnset = errors.New("store location is unset")
)

// EligibilityGate decides whether an order qualifies for broadcast and
// computes the geographic seed point for candidate discovery.
//
// Business rules:
//   - cancelled orders are never broadcast
//   - claimed orders (delivery partner set) are never broadcast
//   - the store must have a usable coordinate pair; the origin (0, 0) and
//     non-finite or out-of-range components count as unset
//
// Example usage:
//
//	gate := NewEligibilityGate()
//	seed, err := gate.Check(o, s)
//	if err != nil {
//	    // not eligible, nothing to do
//	    return
//	}
type EligibilityGate struct{}

func NewEligibilityGate() EligibilityGate {
	return EligibilityGate{}
}

// Check returns the seed point or one of the rejection reasons. It returns a
// validation error when the inputs are malformed or belong to different stores.
func (g EligibilityGate) Check(o *order.Order, s *store.Store) (kernel.GeoPoint, error) {
	if err := o.Validate(); err != nil {
		return kernel.GeoPoint{}, err
	}
	if err := s.Validate(); err != nil {
		return kernel.GeoPoint{}, err
	}
	if !o.StoreID().IsEqual(s.ID()) {
		return kernel.GeoPoint{}, errs.NewValueIsInvalidErrorWithCause(
			"store",
			fmt.Errorf("order %s belongs to store %s, got %s", o.ID(), o.StoreID(), s.ID()),
		)
	}
	if err := g.Recheck(o); err != nil {
		return kernel.GeoPoint{}, err
	}
	if !s.HasUsableLocation() {
		return kernel.GeoPoint{}, ErrStoreLocationUnset
	}
	return s.Location(), nil
}

// Recheck re-applies the cancelled and claimed checks to a freshly read order.
func (g EligibilityGate) Recheck(o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.IsCancelled() {
		return ErrOrderCancelled
	}
	if o.IsClaimed() {
		return ErrOrderClaimed
	}
	return nil
}

// IsRejection reports whether err is one of the gate's no-op reasons.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOrderCancelled) ||
		errors.Is(err, ErrOrderClaimed) ||
		errors.Is(err, ErrStoreLocationUnset)
}
