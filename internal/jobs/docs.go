// Package jobs provides the background work of the dispatch service.
//
// # Components
//
//  1. OrderBroadcaster - runs the first broadcast phase of an approved order
//     in its own goroutine so the approval request returns immediately
//  2. ExpansionScheduler - one-shot timers that run the expanded phase 30
//     seconds after a priority phase
//  3. ScheduledOrderPromotionJob - cron job that promotes due scheduled orders
//     at second zero of every minute, guarded by a Redis lock
//
// # Usage
//
//	jobManager := jobs.NewJobManager(promotionJob, broadcaster, expansions)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	defer jobManager.StopAll(shutdownCtx)
//
// # Error Handling
//
//   - Broadcast no-ops (not eligible, no candidates, phase advanced) log at debug level
//   - Broadcast infrastructure failures log at error level with the failed step and drop the phase
//   - Sweep errors are logged per order; one failed order never stops the sweep
//   - Pending expansions are dropped on shutdown
package jobs
