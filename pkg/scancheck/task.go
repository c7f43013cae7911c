package scancheck

import (
	"context"
	"fmt"
)

// CheckTask is one stateful interpreter instance: the running incarnation
// of a CheckDefinition against one target. A CheckTask is owned by the
// Batch Executor for the duration of one target x check execution; its
// state is private until Tick returns.
type CheckTask interface {
	// Tick drives the task one step forward, invoking the current named
	// step with the task's current state.
	Tick(ctx context.Context) (StepResult, error)

	CurrentStepName() string
	CurrentState() any
	Target() ScanTarget

	// Output returns the value the task produced via Done, or nil if it
	// has not finished yet.
	Output() any
}

// CheckDefinition is a registered check: metadata plus the constructors
// the engine needs to run it once per target.
type CheckDefinition struct {
	Metadata CheckMetadata

	// InitState returns the task's initial state. May be nil if the
	// check carries no state between steps.
	InitState func() any

	// When, if set, restricts applicability beyond severity/aggressivity
	// filtering (§4.F step 1(c)).
	When func(target ScanTarget) bool

	// DedupeKey, if set, derives a stable string from the target; the
	// Dedupe Index allows at most one run of this check per distinct key
	// across the whole scan (§3 DedupeIndex invariant).
	DedupeKey func(target ScanTarget) string

	// Create instantiates a CheckTask bound to rc for one target. Most
	// checks build theirs with NewStepMachineTask.
	Create func(rc RuntimeContext) CheckTask
}

// stepMachineTask is the default CheckTask implementation: an explicit
// {stepName, state, output} record mutated by each tick, per the design
// note in spec §9 ("reimplement as an explicit state object ... mutated
// by each tick; suspension is just the function returning").
type stepMachineTask struct {
	target   ScanTarget
	rc       RuntimeContext
	steps    map[string]StepFunc
	stepName string
	state    any
	output   any
	done     bool
}

// NewStepMachineTask builds a CheckTask that dispatches to steps by name,
// starting at initStep with initState. It is the building block
// CheckDefinition.Create implementations use.
func NewStepMachineTask(rc RuntimeContext, steps map[string]StepFunc, initStep string, initState any) CheckTask {
	return &stepMachineTask{
		target:   rc.Target(),
		rc:       rc,
		steps:    steps,
		stepName: initStep,
		state:    initState,
	}
}

func (t *stepMachineTask) Tick(ctx context.Context) (StepResult, error) {
	if t.done {
		return StepResult{}, fmt.Errorf("scancheck: tick called after task reached done")
	}
	fn, ok := t.steps[t.stepName]
	if !ok {
		return StepResult{}, fmt.Errorf("scancheck: unknown step %q", t.stepName)
	}
	result, err := fn(ctx, t.rc, t.state)
	if err != nil {
		return StepResult{}, err
	}
	t.state = result.State
	switch result.Status {
	case StepDone:
		t.done = true
		t.output = result.Output
	case StepContinue:
		t.stepName = result.NextStep
	default:
		return StepResult{}, fmt.Errorf("scancheck: step %q returned unknown status %q", t.stepName, result.Status)
	}
	return result, nil
}

func (t *stepMachineTask) CurrentStepName() string { return t.stepName }
func (t *stepMachineTask) CurrentState() any        { return t.state }
func (t *stepMachineTask) Target() ScanTarget        { return t.target }
func (t *stepMachineTask) Output() any               { return t.output }
