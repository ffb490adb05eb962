package ports

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// ErrExpansionSchedulerStopped is returned once the scheduler was shut down.
var ErrExpansionSchedulerStopped = errors.New("expansion scheduler is stopped")

// ExpansionScheduler arms the one-shot re-evaluation that runs the expanded
// phase. Pending expansions are dropped when the process stops.
type ExpansionScheduler interface {
	ScheduleExpansion(orderID kernel.UUID, delay time.Duration) error
}
