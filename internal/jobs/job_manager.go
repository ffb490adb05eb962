package jobs

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// JobManager coordinates all background work in the application.
// Provides a unified interface to start and stop it.
type JobManager struct {
	promotionJob *ScheduledOrderPromotionJob
	broadcaster  *OrderBroadcaster
	expansions   *ExpansionScheduler
}

// NewJobManager groups the background components built by the composition root.
func NewJobManager(
	promotionJob *ScheduledOrderPromotionJob,
	broadcaster *OrderBroadcaster,
	expansions *ExpansionScheduler,
) *JobManager {
	return &JobManager{
		promotionJob: promotionJob,
		broadcaster:  broadcaster,
		expansions:   expansions,
	}
}

// StartAll starts all scheduled jobs.
// Broadcaster and expansion scheduler need no start; they run on demand.
func (jm *JobManager) StartAll() error {
	if err := jm.promotionJob.Start(); err != nil {
		return fmt.Errorf("failed to start scheduled order promotion job: %w", err)
	}
	return nil
}

// StopAll stops the cron schedule, then drains broadcasts before dropping
// pending expansions, so that a broadcast finishing during shutdown cannot
// arm a timer that is never cancelled.
func (jm *JobManager) StopAll(ctx context.Context) error {
	jm.promotionJob.Stop()

	var err error
	err = multierr.Append(err, jm.broadcaster.Stop(ctx))
	err = multierr.Append(err, jm.expansions.Stop(ctx))
	return err
}
