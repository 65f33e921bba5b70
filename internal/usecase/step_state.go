package usecase

import "fmt"

// StepState is the lifecycle state of a step within one run
type StepState string

const (
	StepPending   StepState = "Pending"
	StepResolving StepState = "Resolving"
	StepExecuting StepState = "Executing"
	StepCompleted StepState = "Completed"
	StepFailed    StepState = "Failed"
	StepSkipped   StepState = "Skipped"
)

// PlanState is the lifecycle state of a whole run
type PlanState string

const (
	PlanNotStarted PlanState = "NotStarted"
	PlanInProgress PlanState = "InProgress"
	PlanFinished   PlanState = "Finished"
)

// IsTerminal reports whether the state is final
func (s StepState) IsTerminal() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped:
		return true
	default:
		return false
	}
}

// stepStates tracks every selected step of a run
type stepStates map[string]StepState

// transition performs a validated transition. The expected prior state makes
// ordering bugs observable instead of silently overwriting state.
func (s stepStates) transition(stepID string, from, to StepState) error {
	cur, ok := s[stepID]
	if !ok {
		return fmt.Errorf("unknown step in state: %q", stepID)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", stepID, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", stepID, from, to)
	}
	s[stepID] = to
	return nil
}

func isAllowedTransition(from, to StepState) bool {
	switch from {
	case StepPending:
		return to == StepResolving || to == StepSkipped
	case StepResolving:
		return to == StepExecuting || to == StepFailed
	case StepExecuting:
		return to == StepCompleted || to == StepFailed
	default:
		return false
	}
}

// advancePlan moves the run state forward, never backwards
func advancePlan(cur *PlanState, to PlanState) error {
	switch {
	case *cur == PlanNotStarted && to == PlanInProgress,
		*cur == PlanInProgress && to == PlanFinished:
		*cur = to
		return nil
	default:
		return fmt.Errorf("disallowed plan transition: %s -> %s", *cur, to)
	}
}
