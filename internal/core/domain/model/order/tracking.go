package order

import "time"

// Stage names a lifecycle milestone in the order tracking map.
type Stage string

const (
	StagePlaced    Stage = "placed"
	StageConfirmed Stage = "confirmed"
	StagePreparing Stage = "preparing"
	StageReady     Stage = "ready"
	StagePickedUp  Stage = "picked_up"
	StageDelivered Stage = "delivered"
	StageCancelled Stage = "cancelled"
)

// TrackingEntry records that a stage was reached and when.
type TrackingEntry struct {
	Status    bool
	Timestamp time.Time
}

// Tracking is append-only per stage: once a stage is recorded it is never
// overwritten.
type Tracking map[Stage]TrackingEntry

// Record stores the stage if it is not already present and reports whether it
// wrote anything.
func (t Tracking) Record(stage Stage, at time.Time) bool {
	if _, exists := t[stage]; exists {
		return false
	}
	t[stage] = TrackingEntry{Status: true, Timestamp: at}
	return true
}

// Entry returns the entry for the stage, if any.
func (t Tracking) Entry(stage Stage) (TrackingEntry, bool) {
	e, ok := t[stage]
	return e, ok
}

func (t Tracking) clone() Tracking {
	c := make(Tracking, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}
