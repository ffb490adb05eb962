package order

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// ErrPhaseTransitionNotAllowed is returned when a phase write would repeat a
// first phase or skip the priority phase.
var ErrPhaseTransitionNotAllowed = errors.New("notification phase transition not allowed")

// NotificationPhase labels the last broadcast phase executed for an order.
type NotificationPhase string

const (
	PhaseNone      NotificationPhase = ""
	PhasePriority  NotificationPhase = "priority"
	PhaseImmediate NotificationPhase = "immediate"
	PhaseExpanded  NotificationPhase = "expanded"
)

func (p NotificationPhase) String() string {
	return string(p)
}

func (p NotificationPhase) Validate() error {
	switch p {
	case PhaseNone, PhasePriority, PhaseImmediate, PhaseExpanded:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("notification phase", fmt.Errorf("%q is not a phase", string(p)))
	}
}

// AssignmentInfo is the notification bookkeeping stored on the order. It is
// retired once a delivery partner claims the order.
type AssignmentInfo struct {
	Phase              NotificationPhase
	PriorityNotifiedAt *time.Time
	PriorityPartnerIDs []kernel.UUID
	ExpandedNotifiedAt *time.Time
	ExpandedPartnerIDs []kernel.UUID
}

// IsEmpty reports whether no phase has been recorded yet.
func (a AssignmentInfo) IsEmpty() bool {
	return a.Phase == PhaseNone && a.PriorityNotifiedAt == nil && a.ExpandedNotifiedAt == nil
}

// WasNotified reports whether the partner received an offer in any phase.
func (a AssignmentInfo) WasNotified(partnerID kernel.UUID) bool {
	return containsID(a.PriorityPartnerIDs, partnerID) || containsID(a.ExpandedPartnerIDs, partnerID)
}

func (a AssignmentInfo) clone() AssignmentInfo {
	c := a
	c.PriorityPartnerIDs = append([]kernel.UUID(nil), a.PriorityPartnerIDs...)
	c.ExpandedPartnerIDs = append([]kernel.UUID(nil), a.ExpandedPartnerIDs...)
	return c
}

// AssignmentPatch is a partial update of AssignmentInfo. Nil fields are left
// untouched when the patch is applied, both in memory and in the Order Store.
type AssignmentPatch struct {
	Phase              NotificationPhase
	PriorityNotifiedAt *time.Time
	PriorityPartnerIDs []kernel.UUID
	ExpandedNotifiedAt *time.Time
	ExpandedPartnerIDs []kernel.UUID
}

// RequiredCurrentPhase returns the phase the stored order must still be in for
// the patch to apply. First phases require that no phase was recorded yet.
func (p AssignmentPatch) RequiredCurrentPhase() NotificationPhase {
	if p.Phase == PhaseExpanded {
		return PhasePriority
	}
	return PhaseNone
}

// ApplyTo merges the patch into info and returns the result.
func (p AssignmentPatch) ApplyTo(info AssignmentInfo) AssignmentInfo {
	merged := info.clone()
	if p.Phase != PhaseNone {
		merged.Phase = p.Phase
	}
	if p.PriorityNotifiedAt != nil {
		at := *p.PriorityNotifiedAt
		merged.PriorityNotifiedAt = &at
	}
	if p.PriorityPartnerIDs != nil {
		merged.PriorityPartnerIDs = append([]kernel.UUID(nil), p.PriorityPartnerIDs...)
	}
	if p.ExpandedNotifiedAt != nil {
		at := *p.ExpandedNotifiedAt
		merged.ExpandedNotifiedAt = &at
	}
	if p.ExpandedPartnerIDs != nil {
		merged.ExpandedPartnerIDs = append([]kernel.UUID(nil), p.ExpandedPartnerIDs...)
	}
	return merged
}

func containsID(ids []kernel.UUID, id kernel.UUID) bool {
	for _, candidate := range ids {
		if candidate.IsEqual(id) {
			return true
		}
	}
	return false
}
