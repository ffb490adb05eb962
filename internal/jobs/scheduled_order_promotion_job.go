package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

const (
	// DefaultPromotionSchedule runs the sweep at second zero of every minute.
	DefaultPromotionSchedule = "0 * * * * *"

	promotionJobName = "scheduled_order_promotion"
)

type promotionHandler interface {
	Handle(ctx context.Context, command commands.PromoteScheduledOrdersCommand) commands.PromoteScheduledOrdersResult
}

// CycleLock keeps a sweep cycle to a single replica.
type CycleLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ScheduledOrderPromotionJob drives the scheduled-order sweep on a cron
// schedule. Without a lock every replica sweeps; the per-order status guard
// keeps that safe, the lock only saves redundant work.
type ScheduledOrderPromotionJob struct {
	handler  promotionHandler
	lock     CycleLock
	metrics  *metrics.CronJobMetrics
	schedule string
	now      func() time.Time
	cron     *cron.Cron
	logger   *slog.Logger

	// runMu keeps manual and scheduled sweeps in one process from overlapping.
	runMu sync.Mutex
}

// NewScheduledOrderPromotionJob creates the job. An empty schedule uses
// DefaultPromotionSchedule; lock and metrics may be nil.
func NewScheduledOrderPromotionJob(
	handler promotionHandler,
	lock CycleLock,
	m *metrics.CronJobMetrics,
	schedule string,
	now func() time.Time,
	logger *slog.Logger,
) *ScheduledOrderPromotionJob {
	if schedule == "" {
		schedule = DefaultPromotionSchedule
	}
	if now == nil {
		now = time.Now
	}
	logger = logger.With("component", "scheduled_order_promotion_job")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))

	return &ScheduledOrderPromotionJob{
		handler:  handler,
		lock:     lock,
		metrics:  m,
		schedule: schedule,
		now:      now,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
	}
}

// Start registers the sweep on the schedule and starts the cron runner.
func (j *ScheduledOrderPromotionJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Scheduled order promotion job started", "schedule", j.schedule)
	return nil
}

// RunOnce performs one sweep. ran is false when another replica holds the
// cycle lock or the lock could not be read.
func (j *ScheduledOrderPromotionJob) RunOnce(ctx context.Context) (result commands.PromoteScheduledOrdersResult, ran bool) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx)
		if err != nil {
			j.metrics.IncFailure(promotionJobName)
			j.logger.ErrorContext(ctx, "Failed to acquire sweep lock", "error", err)
			return commands.PromoteScheduledOrdersResult{Message: "sweep lock unavailable", Err: err}, false
		}
		if !acquired {
			j.metrics.IncLockSkipped(promotionJobName)
			j.logger.DebugContext(ctx, "Sweep lock held by another replica")
			return commands.PromoteScheduledOrdersResult{Message: "sweep already running on another replica"}, false
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx)); err != nil {
				j.logger.WarnContext(ctx, "Failed to release sweep lock", "error", err)
			}
		}()
	}

	started := time.Now()
	now := j.now()
	command, err := commands.NewPromoteScheduledOrdersCommand(now)
	if err != nil {
		j.metrics.IncFailure(promotionJobName)
		j.logger.ErrorContext(ctx, "Invalid sweep command", "error", err)
		return commands.PromoteScheduledOrdersResult{Message: err.Error(), Err: err}, false
	}

	result = j.handler.Handle(ctx, command)
	j.metrics.ObserveDuration(promotionJobName, time.Since(started))
	j.metrics.AddPromotions(result.Processed, result.Skipped)
	j.report(ctx, result)
	return result, true
}

func (j *ScheduledOrderPromotionJob) report(ctx context.Context, result commands.PromoteScheduledOrdersResult) {
	for _, err := range multierr.Errors(result.NotifyErr) {
		j.logger.WarnContext(ctx, "Store notification failed", "error", err)
	}

	if result.Err == nil {
		j.metrics.IncSuccess(promotionJobName)
		if result.Processed > 0 || result.Skipped > 0 {
			j.logger.InfoContext(ctx, "Scheduled order sweep finished",
				"processed", result.Processed, "skipped", result.Skipped)
		}
		return
	}

	j.metrics.IncFailure(promotionJobName)
	for _, err := range multierr.Errors(result.Err) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			j.logger.WarnContext(ctx, "Scheduled order sweep interrupted", "error", err)
			continue
		}
		j.logger.ErrorContext(ctx, "Scheduled order sweep error", "error", err)
	}
	j.logger.InfoContext(ctx, result.Message, "processed", result.Processed, "skipped", result.Skipped)
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *ScheduledOrderPromotionJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Scheduled order promotion job stopped")
}
