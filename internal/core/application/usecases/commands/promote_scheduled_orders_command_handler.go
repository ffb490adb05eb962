package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"go.uber.org/multierr"
)

// PromoteScheduledOrdersResult summarises one sweep. Err carries the sweep
// failure or the combined per-order failures; NotifyErr the failed store
// notifications. Neither affects the counters' meaning.
type PromoteScheduledOrdersResult struct {
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
	NotifyErr error  `json:"-"`
}

// PromoteScheduledOrdersCommandHandler promotes due scheduled orders into the
// live pipeline. Each order is handled in its own unit of work so one failure
// never blocks the rest; Handle itself never fails.
//
// Per order:
//  1. fresh re-read; skip when it is no longer scheduled and due
//  2. payment gate; skip while a gateway payment is not completed
//  3. promote and persist, conditional on the stored status still being scheduled
//  4. best-effort store notification
type PromoteScheduledOrdersCommandHandler struct {
	uowFactory         OrderUoWFactory
	notifier           ports.NotificationDispatcher
	modificationWindow time.Duration
}

// NewPromoteScheduledOrdersCommandHandler wires the handler; a non-positive
// window falls back to DefaultModificationWindow.
func NewPromoteScheduledOrdersCommandHandler(
	uowFactory OrderUoWFactory,
	notifier ports.NotificationDispatcher,
	modificationWindow time.Duration,
) PromoteScheduledOrdersCommandHandler {
	if modificationWindow <= 0 {
		modificationWindow = DefaultModificationWindow
	}
	return PromoteScheduledOrdersCommandHandler{
		uowFactory:         uowFactory,
		notifier:           notifier,
		modificationWindow: modificationWindow,
	}
}

func (h PromoteScheduledOrdersCommandHandler) Handle(
	ctx context.Context,
	command PromoteScheduledOrdersCommand,
) PromoteScheduledOrdersResult {
	if err := command.Validate(); err != nil {
		return failedSweep(err)
	}

	now := command.Now()
	due, err := h.uowFactory.Create().OrderRepository().FindDueScheduled(ctx, now)
	if err != nil {
		return failedSweep(fmt.Errorf("find due scheduled orders: %w", err))
	}

	var result PromoteScheduledOrdersResult
	for _, candidate := range due {
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Skipped += len(due) - result.Processed - result.Skipped
			result.Err = multierr.Append(result.Err, ctxErr)
			break
		}

		promoted, promoteErr := h.promote(ctx, candidate.ID(), now)
		if promoteErr != nil {
			result.Err = multierr.Append(result.Err, fmt.Errorf("order %s: %w", candidate.ID(), promoteErr))
		}
		if !promoted {
			result.Skipped++
			continue
		}
		result.Processed++

		if notifyErr := h.notifier.NotifyStoreStatusChange(
			ctx, candidate.ID(), candidate.StoreID(), order.StatusConfirmed,
		); notifyErr != nil {
			result.NotifyErr = multierr.Append(result.NotifyErr, fmt.Errorf("order %s: %w", candidate.ID(), notifyErr))
		}
	}

	result.Message = fmt.Sprintf("processed %d scheduled orders, skipped %d", result.Processed, result.Skipped)
	return result
}

// promote reports whether the order went live. Precondition skips return
// false without an error.
func (h PromoteScheduledOrdersCommandHandler) promote(ctx context.Context, id kernel.UUID, now time.Time) (bool, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orders := uow.OrderRepository()

	fresh, err := orders.Get(ctx, id)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !fresh.IsDue(now) || fresh.AwaitingSettlement() {
		return false, nil
	}

	if err = fresh.Promote(now, h.modificationWindow); err != nil {
		return false, err
	}

	err = orders.SavePromotion(ctx, fresh)
	if errors.Is(err, order.ErrStaleOrder) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err = uow.Commit(ctx); err != nil {
		return false, err
	}

	return true, nil
}

func failedSweep(err error) PromoteScheduledOrdersResult {
	return PromoteScheduledOrdersResult{
		Message: fmt.Sprintf("scheduled order sweep failed: %v", err),
		Err:     err,
	}
}
