package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/store"
	"dispatch/internal/pkg/metrics"
)

// DefaultBroadcastTimeout bounds one background broadcast.
const DefaultBroadcastTimeout = 20 * time.Second

// ErrBroadcasterStopped is returned by Trigger after Stop.
var ErrBroadcasterStopped = errors.New("order broadcaster is stopped")

type broadcastHandler interface {
	Handle(ctx context.Context, command commands.BroadcastOrderCommand) (order.NotificationPhase, error)
}

// OrderBroadcaster runs the first broadcast phase in the background so that
// the approval path that triggers it returns immediately.
type OrderBroadcaster struct {
	handler broadcastHandler
	metrics *metrics.BroadcastMetrics
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewOrderBroadcaster creates the broadcaster. A non-positive timeout uses
// DefaultBroadcastTimeout.
func NewOrderBroadcaster(
	handler broadcastHandler,
	m *metrics.BroadcastMetrics,
	timeout time.Duration,
	logger *slog.Logger,
) *OrderBroadcaster {
	if timeout <= 0 {
		timeout = DefaultBroadcastTimeout
	}
	return &OrderBroadcaster{
		handler: handler,
		metrics: m,
		timeout: timeout,
		logger:  logger.With("component", "order_broadcaster"),
	}
}

// Trigger starts a broadcast for the approved order and returns without
// waiting for it. The broadcast outlives ctx cancellation but keeps its values.
// Only invalid input or a stopped broadcaster produce an error.
func (b *OrderBroadcaster) Trigger(ctx context.Context, approved *order.Order, origin *store.Store) error {
	command, err := commands.NewBroadcastOrderCommand(approved, origin)
	if err != nil {
		return fmt.Errorf("build broadcast command: %w", err)
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrBroadcasterStopped
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go b.run(context.WithoutCancel(ctx), command)
	return nil
}

func (b *OrderBroadcaster) run(parent context.Context, command commands.BroadcastOrderCommand) {
	defer b.wg.Done()
	defer b.metrics.TrackInflight()()

	ctx, cancel := context.WithTimeout(parent, b.timeout)
	defer cancel()

	logger := b.logger.With("order_id", command.Order().ID().String())
	defer func() {
		if r := recover(); r != nil {
			b.metrics.IncFailure("panic")
			logger.ErrorContext(ctx, "broadcast panicked", "panic", r)
		}
	}()

	phase, err := b.handler.Handle(ctx, command)
	recordBroadcastOutcome(ctx, logger, b.metrics, phase, err)
}

// Stop rejects new triggers and waits for in-flight broadcasts until ctx is done.
func (b *OrderBroadcaster) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.InfoContext(ctx, "Order broadcaster stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight broadcasts: %w", ctx.Err())
	}
}
