// Package metrics holds the Prometheus collectors of the dispatch service.
// Every recorder method is safe on a nil receiver so that components can run
// without metrics in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dispatch"

// BroadcastMetrics records the outcome of partner broadcasts.
type BroadcastMetrics struct {
	phases   *prometheus.CounterVec
	noops    *prometheus.CounterVec
	failures *prometheus.CounterVec
	inflight prometheus.Gauge
}

// NewBroadcastMetrics registers the broadcast metrics on the provided registerer.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	if reg == nil {
		return &BroadcastMetrics{}
	}
	phases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_phases_total",
		Help:      "Broadcast phases written and dispatched, by phase.",
	}, []string{"phase"})
	noops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_noops_total",
		Help:      "Broadcast attempts that ended without dispatch, by reason.",
	}, []string{"reason"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_failures_total",
		Help:      "Broadcast attempts dropped on an infrastructure failure, by step.",
	}, []string{"step"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broadcasts_inflight",
		Help:      "Broadcasts currently running in the background.",
	})
	reg.MustRegister(phases, noops, failures, inflight)
	return &BroadcastMetrics{
		phases:   phases,
		noops:    noops,
		failures: failures,
		inflight: inflight,
	}
}

func (m *BroadcastMetrics) IncPhase(phase string) {
	if m == nil || m.phases == nil {
		return
	}
	m.phases.WithLabelValues(normalizeLabel(phase)).Inc()
}

func (m *BroadcastMetrics) IncNoOp(reason string) {
	if m == nil || m.noops == nil {
		return
	}
	m.noops.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *BroadcastMetrics) IncFailure(step string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(step)).Inc()
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (m *BroadcastMetrics) TrackInflight() func() {
	if m == nil || m.inflight == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
