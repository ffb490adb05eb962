package jobs

import (
	"context"
	"log/slog"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/metrics"
)

// recordBroadcastOutcome logs and counts the result of one broadcast phase.
// Precondition no-ops are expected and stay at debug level.
func recordBroadcastOutcome(
	ctx context.Context,
	logger *slog.Logger,
	m *metrics.BroadcastMetrics,
	phase order.NotificationPhase,
	err error,
) {
	if phase != order.PhaseNone {
		m.IncPhase(phase.String())
	}

	switch {
	case err == nil:
		logger.InfoContext(ctx, "broadcast phase dispatched", "phase", phase.String())
	case commands.IsBroadcastNoOp(err):
		reason := commands.NoOpReason(err)
		m.IncNoOp(reason)
		logger.DebugContext(ctx, "broadcast phase skipped", "reason", reason, "error", err)
	default:
		step := commands.FailedStep(err)
		m.IncFailure(step)
		logger.ErrorContext(ctx, "broadcast phase dropped", "phase", phase.String(), "step", step, "error", err)
	}
}
