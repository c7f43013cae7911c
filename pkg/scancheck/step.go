package scancheck

import "context"

// StepStatus is the outcome of one CheckTask.Tick call.
type StepStatus string

const (
	StepContinue StepStatus = "continue"
	StepDone     StepStatus = "done"
)

// StepResult is what a single step invocation (and therefore Tick)
// produces: either "continue" with a named next step and updated state,
// or "done" with the task's final output.
type StepResult struct {
	Status StepStatus

	// Findings emitted by this step, in order. May be empty.
	Findings []Finding

	// NextStep names the step to invoke on the following tick. Only
	// meaningful when Status == StepContinue.
	NextStep string

	// State is the task's new state, carried into the next tick (or,
	// when Status == StepDone, the final state).
	State any

	// Output is the value made available to dependent checks via
	// RuntimeContext.DependencyOutput. Only meaningful when
	// Status == StepDone.
	Output any
}

// Done builds a terminal StepResult.
func Done(state any, findings []Finding, output any) StepResult {
	return StepResult{Status: StepDone, Findings: findings, State: state, Output: output}
}

// ContinueWith builds a non-terminal StepResult naming the next step.
func ContinueWith(nextStep string, state any, findings []Finding) StepResult {
	return StepResult{Status: StepContinue, Findings: findings, NextStep: nextStep, State: state}
}

// StepFunc is one named step of a check's state machine. It receives the
// runtime context built for the current target and the task's current
// state, and returns the next StepResult. Implementations that issue
// HTTP requests must do so through rc.SDK(), which routes sends through
// the Request Queue and honors ctx for cancellation.
type StepFunc func(ctx context.Context, rc RuntimeContext, state any) (StepResult, error)

// StepBuilder collects a check's named steps at registration time. A
// check plugin registers one or more steps and returns a CheckDefinition
// whose Create method binds them into a running CheckTask (see
// NewStepMachineTask).
type StepBuilder struct {
	steps map[string]StepFunc
}

// NewStepBuilder returns an empty StepBuilder.
func NewStepBuilder() *StepBuilder {
	return &StepBuilder{steps: make(map[string]StepFunc)}
}

// Step registers a named step function. Returns the builder so calls can
// be chained.
func (b *StepBuilder) Step(name string, fn StepFunc) *StepBuilder {
	b.steps[name] = fn
	return b
}

// Build returns the accumulated step table.
func (b *StepBuilder) Build() map[string]StepFunc {
	out := make(map[string]StepFunc, len(b.steps))
	for k, v := range b.steps {
		out[k] = v
	}
	return out
}
