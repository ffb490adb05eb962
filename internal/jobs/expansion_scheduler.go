package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/metrics"
)

type expansionHandler interface {
	Handle(ctx context.Context, command commands.ExpandBroadcastCommand) (int, error)
}

// ExpansionScheduler arms one-shot timers that run the expanded broadcast
// phase. At most one expansion is pending per order. Pending expansions are
// dropped on Stop; nothing persists them across restarts.
type ExpansionScheduler struct {
	handler expansionHandler
	metrics *metrics.BroadcastMetrics
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	timers  map[kernel.UUID]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

var _ ports.ExpansionScheduler = (*ExpansionScheduler)(nil)

func NewExpansionScheduler(
	handler expansionHandler,
	m *metrics.BroadcastMetrics,
	timeout time.Duration,
	logger *slog.Logger,
) *ExpansionScheduler {
	if timeout <= 0 {
		timeout = DefaultBroadcastTimeout
	}
	return &ExpansionScheduler{
		handler: handler,
		metrics: m,
		timeout: timeout,
		logger:  logger.With("component", "expansion_scheduler"),
		timers:  make(map[kernel.UUID]*time.Timer),
	}
}

// ScheduleExpansion runs the expanded phase for the order after delay. A
// second call while one is pending keeps the original timer.
func (s *ExpansionScheduler) ScheduleExpansion(orderID kernel.UUID, delay time.Duration) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ports.ErrExpansionSchedulerStopped
	}
	if _, pending := s.timers[orderID]; pending {
		return nil
	}
	s.timers[orderID] = time.AfterFunc(delay, func() { s.fire(orderID) })
	return nil
}

// Pending returns the number of armed expansions.
func (s *ExpansionScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ExpansionScheduler) fire(orderID kernel.UUID) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, orderID)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	logger := s.logger.With("order_id", orderID.String())
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncFailure("panic")
			logger.ErrorContext(ctx, "expansion panicked", "panic", r)
		}
	}()

	command, err := commands.NewExpandBroadcastCommand(orderID)
	if err != nil {
		logger.ErrorContext(ctx, "invalid expansion command", "error", err)
		return
	}

	notified, err := s.handler.Handle(ctx, command)
	phase := order.PhaseNone
	if err == nil {
		phase = order.PhaseExpanded
		logger = logger.With("partners", notified)
	}
	recordBroadcastOutcome(ctx, logger, s.metrics, phase, err)
}

// Stop cancels every pending expansion and waits for running ones until ctx
// is done.
func (s *ExpansionScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	dropped := len(s.timers)
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropping pending expansions", "count", dropped)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.InfoContext(ctx, "Expansion scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running expansions: %w", ctx.Err())
	}
}
