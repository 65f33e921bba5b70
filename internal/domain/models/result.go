package models

import "time"

// Outcome is the per-step result reported to the operator
type Outcome string

const (
	OutcomeSkipped  Outcome = "Skipped"
	OutcomeDeployed Outcome = "Deployed"
	OutcomeReused   Outcome = "Reused"
	OutcomeWired    Outcome = "Wired"
	OutcomeFailed   Outcome = "Failed"
	// OutcomePlanned is only produced by dry runs
	OutcomePlanned Outcome = "Planned"
)

// SkipReason qualifies OutcomeSkipped
type SkipReason string

const (
	SkipPredicate  SkipReason = "predicate"
	SkipSatisfied  SkipReason = "satisfied"
	SkipDependency SkipReason = "dependency"
)

// DeploymentResult is the outcome of one step in one run
type DeploymentResult struct {
	StepID     string
	Kind       StepKind
	Contract   string
	Outcome    Outcome
	SkipReason SkipReason
	Detail     string
	Record     *ContractRecord
	TxHash     string
	Err        error
	Duration   time.Duration
}

// Label renders the outcome the way the operator sees it
func (r DeploymentResult) Label() string {
	switch r.Outcome {
	case OutcomeSkipped:
		switch r.SkipReason {
		case SkipPredicate:
			return "Skipped (predicate false)"
		case SkipSatisfied:
			return "Skipped (already satisfied)"
		case SkipDependency:
			return "Skipped (dependency skipped)"
		}
		return "Skipped"
	case OutcomeFailed:
		if r.Err != nil {
			return "Failed: " + r.Err.Error()
		}
		return "Failed"
	default:
		return string(r.Outcome)
	}
}

// Failed reports whether the step failed
func (r DeploymentResult) Failed() bool { return r.Outcome == OutcomeFailed }
