package order

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned for Order values that bypassed NewOrder/RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder constructor")

	// ErrOrderIsNotScheduled is returned when promoting an order that left the scheduled state.
	ErrOrderIsNotScheduled = errors.New("order is not scheduled")

	// ErrOrderNotBroadcastable is returned when a phase is recorded on a claimed or cancelled order.
	ErrOrderNotBroadcastable = errors.New("order is claimed or cancelled")

	// ErrStaleOrder is returned by the Order Store when a conditional write
	// matched no row because the order changed after it was read.
	ErrStaleOrder = errors.New("order changed since it was read")
)

// Order is the aggregate root shared by checkout, store, partner and dispatch
// workflows. Dispatch only mutates notification bookkeeping and the
// scheduled -> confirmed promotion.
type Order struct {
	id                kernel.UUID
	storeID           kernel.UUID
	status            Status
	deliveryPartnerID *kernel.UUID
	assignment        AssignmentInfo
	scheduledDelivery *ScheduledDelivery
	payment           Payment
	tracking          Tracking
	postOrderActions  PostOrderActions
	isConstructed     bool
}

// Snapshot carries the full persisted state of an order for RestoreOrder.
type Snapshot struct {
	ID                kernel.UUID
	StoreID           kernel.UUID
	Status            Status
	DeliveryPartnerID *kernel.UUID
	Assignment        AssignmentInfo
	ScheduledDelivery *ScheduledDelivery
	Payment           Payment
	Tracking          Tracking
	PostOrderActions  PostOrderActions
}

// NewOrder creates an order the way checkout does: confirmed when it is for
// now, scheduled when a delivery slot is given.
func NewOrder(id, storeID kernel.UUID, payment Payment, scheduledFor *time.Time, placedAt time.Time) (*Order, error) {
	status := StatusConfirmed
	var scheduled *ScheduledDelivery
	if scheduledFor != nil {
		status = StatusScheduled
		scheduled = &ScheduledDelivery{IsScheduled: true, ScheduledFor: *scheduledFor}
	}

	tracking := Tracking{}
	tracking.Record(StagePlaced, placedAt)
	if status == StatusConfirmed {
		tracking.Record(StageConfirmed, placedAt)
	}

	return RestoreOrder(Snapshot{
		ID:                id,
		StoreID:           storeID,
		Status:            status,
		ScheduledDelivery: scheduled,
		Payment:           payment,
		Tracking:          tracking,
	})
}

// RestoreOrder rebuilds an order from persisted state, validating invariants.
func RestoreOrder(s Snapshot) (*Order, error) {
	if err := errors.Join(
		s.ID.Validate(),
		s.StoreID.Validate(),
		s.Status.Validate(),
		s.Payment.Validate(),
		s.Assignment.Phase.Validate(),
		validatePartner(s.DeliveryPartnerID),
	); err != nil {
		return nil, err
	}

	tracking := s.Tracking.clone()
	var scheduled *ScheduledDelivery
	if s.ScheduledDelivery != nil {
		sd := *s.ScheduledDelivery
		scheduled = &sd
	}

	return &Order{
		id:                s.ID,
		storeID:           s.StoreID,
		status:            s.Status,
		deliveryPartnerID: s.DeliveryPartnerID,
		assignment:        s.Assignment.clone(),
		scheduledDelivery: scheduled,
		payment:           s.Payment,
		tracking:          tracking,
		postOrderActions:  s.PostOrderActions,
		isConstructed:     true,
	}, nil
}

// Validate ensures the order was built through a constructor.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) ID() kernel.UUID                       { return o.id }
func (o *Order) StoreID() kernel.UUID                  { return o.storeID }
func (o *Order) Status() Status                        { return o.status }
func (o *Order) DeliveryPartnerID() *kernel.UUID       { return o.deliveryPartnerID }
func (o *Order) Assignment() AssignmentInfo            { return o.assignment.clone() }
func (o *Order) ScheduledDelivery() *ScheduledDelivery { return o.scheduledDelivery }
func (o *Order) Payment() Payment                      { return o.payment }
func (o *Order) Tracking() Tracking                    { return o.tracking.clone() }
func (o *Order) PostOrderActions() PostOrderActions    { return o.postOrderActions }

// IsClaimed reports whether a delivery partner has accepted the order.
func (o *Order) IsClaimed() bool {
	return o.deliveryPartnerID != nil
}

// IsCancelled reports whether the order was cancelled.
func (o *Order) IsCancelled() bool {
	return o.status == StatusCancelled
}

// IsBroadcastable reports whether a new notification phase may target the order.
func (o *Order) IsBroadcastable() bool {
	return !o.IsClaimed() && !o.IsCancelled()
}

// IsDue reports whether the order is a scheduled order whose slot has arrived.
func (o *Order) IsDue(now time.Time) bool {
	return o.status == StatusScheduled && o.scheduledDelivery.IsDue(now)
}

// AwaitingSettlement reports whether the payment still blocks promotion.
func (o *Order) AwaitingSettlement() bool {
	return !o.payment.IsSettled()
}

// RecordPriorityPhase records the first broadcast to the nearest partners.
func (o *Order) RecordPriorityPhase(partnerIDs []kernel.UUID, at time.Time) (AssignmentPatch, error) {
	if len(partnerIDs) == 0 {
		return AssignmentPatch{}, errs.NewValueIsRequiredError("priority partner ids")
	}
	return o.applyPatch(AssignmentPatch{
		Phase:              PhasePriority,
		PriorityNotifiedAt: &at,
		PriorityPartnerIDs: partnerIDs,
	})
}

// RecordImmediatePhase records the single-partner fallback used when the
// priority search came back empty. The partner is stored as the priority set.
func (o *Order) RecordImmediatePhase(partnerID kernel.UUID, at time.Time) (AssignmentPatch, error) {
	if err := partnerID.Validate(); err != nil {
		return AssignmentPatch{}, err
	}
	return o.applyPatch(AssignmentPatch{
		Phase:              PhaseImmediate,
		PriorityNotifiedAt: &at,
		PriorityPartnerIDs: []kernel.UUID{partnerID},
	})
}

// RecordExpandedPhase records the second, wider broadcast. It is only valid
// after a priority phase and never re-notifies a priority partner.
func (o *Order) RecordExpandedPhase(partnerIDs []kernel.UUID, at time.Time) (AssignmentPatch, error) {
	if len(partnerIDs) == 0 {
		return AssignmentPatch{}, errs.NewValueIsRequiredError("expanded partner ids")
	}
	for _, id := range partnerIDs {
		if containsID(o.assignment.PriorityPartnerIDs, id) {
			return AssignmentPatch{}, errs.NewValueIsInvalidErrorWithCause(
				"expanded partner ids",
				fmt.Errorf("partner %s was already notified in the priority phase", id),
			)
		}
	}
	return o.applyPatch(AssignmentPatch{
		Phase:              PhaseExpanded,
		ExpandedNotifiedAt: &at,
		ExpandedPartnerIDs: partnerIDs,
	})
}

func (o *Order) applyPatch(patch AssignmentPatch) (AssignmentPatch, error) {
	if !o.IsBroadcastable() {
		return AssignmentPatch{}, ErrOrderNotBroadcastable
	}
	if current := o.assignment.Phase; current != patch.RequiredCurrentPhase() {
		return AssignmentPatch{}, fmt.Errorf("%w: %q -> %q", ErrPhaseTransitionNotAllowed, current, patch.Phase)
	}
	o.assignment = patch.ApplyTo(o.assignment)
	return patch, nil
}

// Promote moves a due scheduled order into the live pipeline: it becomes
// confirmed, gets a confirmed tracking entry (kept if one already exists) and
// opens the customer modification window.
func (o *Order) Promote(now time.Time, modificationWindow time.Duration) error {
	if o.status != StatusScheduled {
		return fmt.Errorf("%w: status is %s", ErrOrderIsNotScheduled, o.status)
	}
	if modificationWindow <= 0 {
		return errs.NewValueIsOutOfRangeError("modification window", modificationWindow, "1ns", "unbounded")
	}

	o.status = StatusConfirmed
	if o.tracking == nil {
		o.tracking = Tracking{}
	}
	o.tracking.Record(StageConfirmed, now)

	start := now
	expires := now.Add(modificationWindow)
	o.postOrderActions = PostOrderActions{
		ModificationWindowStartAt:   &start,
		ModificationWindowExpiresAt: &expires,
	}
	return nil
}

// Claim assigns the delivery partner that accepted the order.
func (o *Order) Claim(partnerID kernel.UUID) error {
	if err := partnerID.Validate(); err != nil {
		return err
	}
	if !o.IsBroadcastable() {
		return ErrOrderNotBroadcastable
	}
	o.deliveryPartnerID = &partnerID
	return nil
}

// Cancel marks the order cancelled.
func (o *Order) Cancel(at time.Time) error {
	if o.status.IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%s order cannot be cancelled", o.status))
	}
	o.status = StatusCancelled
	if o.tracking == nil {
		o.tracking = Tracking{}
	}
	o.tracking.Record(StageCancelled, at)
	return nil
}

func validatePartner(id *kernel.UUID) error {
	if id == nil {
		return nil
	}
	return id.Validate()
}
