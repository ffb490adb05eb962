package commands

import (
	"errors"
	"fmt"
)

// Precondition no-ops of the broadcast phases. Handlers return them so that
// callers can tell "nothing to do" apart from infrastructure failures.
var (
	ErrOrderNotEligible     = errors.New("order is not eligible for broadcast")
	ErrNoCandidatesFound    = errors.New("no delivery partner candidates found")
	ErrPhaseAlreadyAdvanced = errors.New("notification phase already advanced")
)

// Broadcast steps reported by StepError.
const (
	StepReadOrder    = "read_order"
	StepReadStore    = "read_store"
	StepLocate       = "locate"
	StepPersist      = "persist"
	StepDispatch     = "dispatch"
	StepScheduleNext = "schedule_expansion"
)

// StepError is an infrastructure failure inside a broadcast phase. The phase
// is dropped; nothing retries it.
type StepError struct {
	Step string
	Err  error
}

func newStepError(step string, err error) *StepError {
	return &StepError{Step: step, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("broadcast step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsBroadcastNoOp reports whether err is a precondition no-op.
func IsBroadcastNoOp(err error) bool {
	return errors.Is(err, ErrOrderNotEligible) ||
		errors.Is(err, ErrNoCandidatesFound) ||
		errors.Is(err, ErrPhaseAlreadyAdvanced)
}

// NoOpReason returns a short label for a precondition no-op, or "" for any
// other error.
func NoOpReason(err error) string {
	switch {
	case errors.Is(err, ErrOrderNotEligible):
		return "not_eligible"
	case errors.Is(err, ErrNoCandidatesFound):
		return "no_candidates"
	case errors.Is(err, ErrPhaseAlreadyAdvanced):
		return "phase_advanced"
	default:
		return ""
	}
}

// FailedStep returns the step of a StepError, or "" when err is not one.
func FailedStep(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}

func notEligible(cause error) error {
	return fmt.Errorf("%w: %w", ErrOrderNotEligible, cause)
}
