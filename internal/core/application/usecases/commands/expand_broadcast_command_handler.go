package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// ExpandBroadcastCommandHandler runs the expanded phase: it re-reads the order,
// stops if a partner claimed it or it was cancelled, looks up a wider pool and
// offers the order to the partners the priority phase did not reach.
//
// The write is merged into the existing assignment info and only lands while
// the stored phase is still priority, so the phase runs at most once.
type ExpandBroadcastCommandHandler struct {
	uowFactory UoWFactory
	discovery  CandidateDiscovery
	notifier   ports.NotificationDispatcher
	gate       services.EligibilityGate
	filter     services.CandidateFilter
	policy     BroadcastPolicy
	now        func() time.Time
}

func NewExpandBroadcastCommandHandler(
	uowFactory UoWFactory,
	locator ports.PartnerLocator,
	notifier ports.NotificationDispatcher,
	policy BroadcastPolicy,
	now func() time.Time,
) ExpandBroadcastCommandHandler {
	return ExpandBroadcastCommandHandler{
		uowFactory: uowFactory,
		discovery:  NewCandidateDiscovery(locator),
		notifier:   notifier,
		gate:       services.NewEligibilityGate(),
		filter:     services.NewCandidateFilter(),
		policy:     policy.withDefaults(),
		now:        clockOrDefault(now),
	}
}

// Handle returns the number of partners notified.
func (h ExpandBroadcastCommandHandler) Handle(ctx context.Context, command ExpandBroadcastCommand) (int, error) {
	if err := command.Validate(); err != nil {
		return 0, err
	}

	uow := h.uowFactory.Create()
	orders := uow.OrderRepository()

	fresh, err := orders.Get(ctx, command.OrderID())
	if errors.Is(err, errs.ErrObjectNotFound) {
		return 0, notEligible(err)
	}
	if err != nil {
		return 0, newStepError(StepReadOrder, err)
	}
	if err = h.gate.Recheck(fresh); err != nil {
		return 0, notEligible(err)
	}

	info := fresh.Assignment()
	if info.Phase != order.PhasePriority {
		return 0, ErrPhaseAlreadyAdvanced
	}

	origin, err := uow.StoreRepository().Get(ctx, fresh.StoreID())
	if errors.Is(err, errs.ErrObjectNotFound) {
		return 0, notEligible(err)
	}
	if err != nil {
		return 0, newStepError(StepReadStore, err)
	}
	seed, err := h.gate.Check(fresh, origin)
	if services.IsRejection(err) {
		return 0, notEligible(err)
	}
	if err != nil {
		return 0, err
	}

	pool, err := h.discovery.FindWiderCandidates(ctx, seed, origin.ID(), h.policy.ExpandedPoolSize)
	if err != nil {
		return 0, newStepError(StepLocate, err)
	}
	expanded := h.filter.ExcludeNotified(pool, info.PriorityPartnerIDs)
	if len(expanded) == 0 {
		return 0, ErrNoCandidatesFound
	}

	partnerIDs := partner.IDs(expanded)
	patch, err := fresh.RecordExpandedPhase(partnerIDs, h.now())
	if err != nil {
		return 0, phaseRejected(err)
	}
	if err = persistAndDispatch(ctx, orders, h.notifier, fresh, origin, patch, partnerIDs); err != nil {
		return 0, err
	}
	return len(partnerIDs), nil
}
