package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/model/store"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// BroadcastOrderCommandHandler runs the first broadcast phase.
//
// Flow:
//  1. Eligibility gate on the approved document and store location.
//  2. Fresh re-read of the order and a second claimed/cancelled check. An
//     order that already went through a first phase is left alone.
//  3. Priority lookup of the nearest partners. When it is empty, a single
//     fallback partner from a wider pool gets the order (immediate phase).
//  4. Conditional write of the phase bookkeeping, then the offer dispatch.
//  5. For the priority phase only, the expansion is armed.
//
// Handle returns the phase it executed. Precondition no-ops come back as
// ErrOrderNotEligible, ErrNoCandidatesFound or ErrPhaseAlreadyAdvanced;
// infrastructure failures as *StepError. A failed dispatch drops the phase
// and no expansion is armed.
//
// Example:
//
//	phase, err := handler.Handle(ctx, cmd)
//	switch {
//	case IsBroadcastNoOp(err):
//	    log.Debug("nothing to broadcast", "reason", NoOpReason(err))
//	case err != nil:
//	    log.Error("broadcast failed", "step", FailedStep(err), "error", err)
//	default:
//	    log.Info("broadcast sent", "phase", phase)
//	}
type BroadcastOrderCommandHandler struct {
	uowFactory UoWFactory
	discovery  CandidateDiscovery
	notifier   ports.NotificationDispatcher
	expansions ports.ExpansionScheduler
	gate       services.EligibilityGate
	policy     BroadcastPolicy
	now        func() time.Time
}

// NewBroadcastOrderCommandHandler wires the handler. Zero policy fields fall
// back to the defaults and a nil clock means time.Now.
func NewBroadcastOrderCommandHandler(
	uowFactory UoWFactory,
	locator ports.PartnerLocator,
	notifier ports.NotificationDispatcher,
	expansions ports.ExpansionScheduler,
	policy BroadcastPolicy,
	now func() time.Time,
) BroadcastOrderCommandHandler {
	return BroadcastOrderCommandHandler{
		uowFactory: uowFactory,
		discovery:  NewCandidateDiscovery(locator),
		notifier:   notifier,
		expansions: expansions,
		gate:       services.NewEligibilityGate(),
		policy:     policy.withDefaults(),
		now:        clockOrDefault(now),
	}
}

func (h BroadcastOrderCommandHandler) Handle(ctx context.Context, command BroadcastOrderCommand) (order.NotificationPhase, error) {
	if err := command.Validate(); err != nil {
		return order.PhaseNone, err
	}

	origin := command.Store()
	seed, err := h.gate.Check(command.Order(), origin)
	if services.IsRejection(err) {
		return order.PhaseNone, notEligible(err)
	}
	if err != nil {
		return order.PhaseNone, err
	}

	orders := h.uowFactory.Create().OrderRepository()
	orderID := command.Order().ID()

	fresh, err := orders.Get(ctx, orderID)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return order.PhaseNone, notEligible(err)
	}
	if err != nil {
		return order.PhaseNone, newStepError(StepReadOrder, err)
	}
	if err = h.gate.Recheck(fresh); err != nil {
		return order.PhaseNone, notEligible(err)
	}
	if current := fresh.Assignment().Phase; current != order.PhaseNone {
		return order.PhaseNone, fmt.Errorf("%w: order is already in the %s phase", ErrPhaseAlreadyAdvanced, current)
	}

	candidates, err := h.discovery.FindTopCandidates(ctx, seed, origin.ID(), h.policy.PriorityCandidates)
	if err != nil {
		return order.PhaseNone, newStepError(StepLocate, err)
	}
	if len(candidates) == 0 {
		return h.runImmediatePhase(ctx, orders, fresh, origin, seed)
	}

	partnerIDs := partner.IDs(candidates)
	patch, err := fresh.RecordPriorityPhase(partnerIDs, h.now())
	if err != nil {
		return order.PhaseNone, phaseRejected(err)
	}
	if err = persistAndDispatch(ctx, orders, h.notifier, fresh, origin, patch, partnerIDs); err != nil {
		return order.PhaseNone, err
	}

	if err = h.expansions.ScheduleExpansion(orderID, h.policy.ExpansionDelay); err != nil {
		return order.PhasePriority, newStepError(StepScheduleNext, err)
	}
	return order.PhasePriority, nil
}

func (h BroadcastOrderCommandHandler) runImmediatePhase(
	ctx context.Context,
	orders ports.OrderRepository,
	fresh *order.Order,
	origin *store.Store,
	seed kernel.GeoPoint,
) (order.NotificationPhase, error) {
	candidate, err := h.discovery.FindSingleCandidate(ctx, seed, origin.ID(), h.policy.FallbackPoolSize)
	if err != nil {
		return order.PhaseNone, newStepError(StepLocate, err)
	}
	if candidate == nil {
		return order.PhaseNone, ErrNoCandidatesFound
	}

	patch, err := fresh.RecordImmediatePhase(candidate.ID, h.now())
	if err != nil {
		return order.PhaseNone, phaseRejected(err)
	}
	if err = persistAndDispatch(ctx, orders, h.notifier, fresh, origin, patch, []kernel.UUID{candidate.ID}); err != nil {
		return order.PhaseNone, err
	}
	return order.PhaseImmediate, nil
}

// persistAndDispatch writes the phase and then offers the order. A write that
// matches no row means a claim or cancellation won the race.
func persistAndDispatch(
	ctx context.Context,
	orders ports.OrderRepository,
	notifier ports.NotificationDispatcher,
	fresh *order.Order,
	origin *store.Store,
	patch order.AssignmentPatch,
	partnerIDs []kernel.UUID,
) error {
	if err := orders.ApplyAssignmentPatch(ctx, fresh.ID(), patch); err != nil {
		if errors.Is(err, order.ErrStaleOrder) {
			return notEligible(err)
		}
		return newStepError(StepPersist, err)
	}
	if err := notifier.DispatchOffer(ctx, fresh, origin, partnerIDs, patch.Phase); err != nil {
		return newStepError(StepDispatch, err)
	}
	return nil
}

func phaseRejected(err error) error {
	switch {
	case errors.Is(err, order.ErrPhaseTransitionNotAllowed):
		return errors.Join(ErrPhaseAlreadyAdvanced, err)
	case errors.Is(err, order.ErrOrderNotBroadcastable):
		return notEligible(err)
	default:
		return err
	}
}
