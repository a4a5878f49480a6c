package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/types"
)

func TestSequenceOrder(t *testing.T) {
	expected := []types.Stage{
		types.StageSave, types.StageGenerate, types.StageEmail, types.StageStore, types.StageComplete,
	}

	require.Len(t, Sequence, len(expected))
	for i, stage := range expected {
		assert.Equal(t, stage, Sequence[i].Stage)
		assert.Equal(t, i, IndexOf(stage))
		assert.NotEmpty(t, Sequence[i].Label)
	}
	assert.Equal(t, -1, IndexOf(types.Stage("unknown")))
}

func TestStepRegistry(t *testing.T) {
	for _, def := range Sequence {
		got, ok := StepRegistry[def.ID]
		require.True(t, ok, "Step %s should be in registry", def.ID)
		assert.Equal(t, def.Label, got.Label)
	}
}

func TestNewSteps(t *testing.T) {
	s := NewSteps()
	require.Len(t, s, len(Sequence))
	for _, step := range s {
		assert.Equal(t, progress.StatusPending, step.Status)
	}
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{
		Step:                "store",
		MissingDependencies: []string{"generate"},
	}

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Equal(t, "store", err.Step)
}

func TestValidateDependencies(t *testing.T) {
	s := NewSteps()
	s[0].Status = progress.StatusComplete

	assert.NoError(t, ValidateDependencies(s, "generate"))
	assert.NoError(t, ValidateDependencies(s, "complete"))

	err := ValidateDependencies(s, "store")
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, []string{"generate"}, depErr.MissingDependencies)

	// a failed email does not block storage
	s[1].Status = progress.StatusComplete
	s[2].Status = progress.StatusError
	assert.NoError(t, ValidateDependencies(s, "store"))
}

func TestValidateDependencies_UnknownStep(t *testing.T) {
	err := ValidateDependencies(NewSteps(), "unknown_step")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}
