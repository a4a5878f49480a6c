// Package steps defines the ordered submission steps shared by the
// orchestrator, the progress tracker and the HTTP surface.
package steps

import (
	"fmt"

	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/types"
)

// StepDefinition defines metadata for a submission step
type StepDefinition struct {
	ID           string
	Label        string
	Stage        types.Stage
	Dependencies []string
}

// Sequence is the submission order. Email and store both depend only on
// generate, so a failed email never blocks storage.
var Sequence = []StepDefinition{
	{
		ID:           string(types.StageSave),
		Label:        "Saving transaction record",
		Stage:        types.StageSave,
		Dependencies: []string{},
	},
	{
		ID:           string(types.StageGenerate),
		Label:        "Generating transaction sheet",
		Stage:        types.StageGenerate,
		Dependencies: []string{string(types.StageSave)},
	},
	{
		ID:           string(types.StageEmail),
		Label:        "Emailing document",
		Stage:        types.StageEmail,
		Dependencies: []string{string(types.StageGenerate)},
	},
	{
		ID:           string(types.StageStore),
		Label:        "Storing document",
		Stage:        types.StageStore,
		Dependencies: []string{string(types.StageGenerate)},
	},
	{
		ID:           string(types.StageComplete),
		Label:        "Complete",
		Stage:        types.StageComplete,
		Dependencies: []string{string(types.StageSave)},
	},
}

// StepRegistry indexes Sequence by id
var StepRegistry = func() map[string]StepDefinition {
	m := make(map[string]StepDefinition, len(Sequence))
	for _, def := range Sequence {
		m[def.ID] = def
	}
	return m
}()

// NewSteps returns a fresh progress sequence in submission order.
func NewSteps() []progress.Step {
	out := make([]progress.Step, len(Sequence))
	for i, def := range Sequence {
		out[i] = progress.Step{ID: def.ID, Label: def.Label, Status: progress.StatusPending}
	}
	return out
}

// IndexOf returns the position of a stage in Sequence, or -1.
func IndexOf(stage types.Stage) int {
	for i, def := range Sequence {
		if def.Stage == stage {
			return i
		}
	}
	return -1
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// ValidateDependencies checks that every dependency of stepID is complete in
// the given progress sequence.
func ValidateDependencies(current []progress.Step, stepID string) error {
	def, ok := StepRegistry[stepID]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepID)
	}

	status := make(map[string]progress.Status, len(current))
	for _, s := range current {
		status[s.ID] = s.Status
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if status[dep] != progress.StatusComplete {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepID,
			MissingDependencies: missing,
		}
	}

	return nil
}
