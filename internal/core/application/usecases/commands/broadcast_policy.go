package commands

import "time"

const (
	DefaultPriorityCandidates = 5
	DefaultFallbackPoolSize   = 50
	DefaultExpandedPoolSize   = 50
	DefaultExpansionDelay     = 30 * time.Second
	DefaultModificationWindow = 2 * time.Minute
)

// BroadcastPolicy holds the sizes and delay of the two-phase broadcast.
// The delay is measured from the priority dispatch, not from order creation.
type BroadcastPolicy struct {
	PriorityCandidates int
	FallbackPoolSize   int
	ExpandedPoolSize   int
	ExpansionDelay     time.Duration
}

func DefaultBroadcastPolicy() BroadcastPolicy {
	return BroadcastPolicy{
		PriorityCandidates: DefaultPriorityCandidates,
		FallbackPoolSize:   DefaultFallbackPoolSize,
		ExpandedPoolSize:   DefaultExpandedPoolSize,
		ExpansionDelay:     DefaultExpansionDelay,
	}
}

// withDefaults replaces non-positive fields with their defaults.
func (p BroadcastPolicy) withDefaults() BroadcastPolicy {
	d := DefaultBroadcastPolicy()
	if p.PriorityCandidates <= 0 {
		p.PriorityCandidates = d.PriorityCandidates
	}
	if p.FallbackPoolSize <= 0 {
		p.FallbackPoolSize = d.FallbackPoolSize
	}
	if p.ExpandedPoolSize <= 0 {
		p.ExpandedPoolSize = d.ExpandedPoolSize
	}
	if p.ExpansionDelay <= 0 {
		p.ExpansionDelay = d.ExpansionDelay
	}
	return p
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
