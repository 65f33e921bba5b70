package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepStates_Transition(t *testing.T) {
	tests := []struct {
		name    string
		path    []StepState
		wantErr bool
	}{
		{name: "completed", path: []StepState{StepPending, StepResolving, StepExecuting, StepCompleted}},
		{name: "failed while resolving", path: []StepState{StepPending, StepResolving, StepFailed}},
		{name: "failed while executing", path: []StepState{StepPending, StepResolving, StepExecuting, StepFailed}},
		{name: "skipped", path: []StepState{StepPending, StepSkipped}},
		{name: "no executing without resolving", path: []StepState{StepPending, StepExecuting}, wantErr: true},
		{name: "no skipping once resolving", path: []StepState{StepPending, StepResolving, StepSkipped}, wantErr: true},
		{name: "terminal states are final", path: []StepState{StepPending, StepSkipped, StepResolving}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states := stepStates{"step": tt.path[0]}
			var err error
			for i := 1; i < len(tt.path) && err == nil; i++ {
				err = states.transition("step", tt.path[i-1], tt.path[i])
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, states["step"].IsTerminal())
		})
	}
}

func TestStepStates_WrongPriorState(t *testing.T) {
	states := stepStates{"deploy-token": StepResolving}

	err := states.transition("deploy-token", StepPending, StepSkipped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Pending, got Resolving")
	assert.Equal(t, StepResolving, states["deploy-token"])

	assert.Error(t, states.transition("unknown", StepPending, StepResolving))
}

func TestAdvancePlan(t *testing.T) {
	state := PlanNotStarted

	require.Error(t, advancePlan(&state, PlanFinished))
	require.NoError(t, advancePlan(&state, PlanInProgress))
	require.NoError(t, advancePlan(&state, PlanFinished))
	assert.Equal(t, PlanFinished, state)
	assert.Error(t, advancePlan(&state, PlanInProgress))
}
