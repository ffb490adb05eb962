package order

import "time"

// ScheduledDelivery is present only for orders deferred to a later slot.
type ScheduledDelivery struct {
	IsScheduled  bool
	ScheduledFor time.Time
}

// IsDue reports whether the deferred slot has arrived at now.
func (s *ScheduledDelivery) IsDue(now time.Time) bool {
	return s != nil && s.IsScheduled && !s.ScheduledFor.After(now)
}

// PostOrderActions carries the customer modification window opened when an
// order goes live.
type PostOrderActions struct {
	ModificationWindowStartAt   *time.Time
	ModificationWindowExpiresAt *time.Time
}

// IsModifiable reports whether now falls inside the modification window.
func (p PostOrderActions) IsModifiable(now time.Time) bool {
	if p.ModificationWindowStartAt == nil || p.ModificationWindowExpiresAt == nil {
		return false
	}
	return !now.Before(*p.ModificationWindowStartAt) && now.Before(*p.ModificationWindowExpiresAt)
}
