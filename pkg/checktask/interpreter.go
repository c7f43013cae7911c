// Package checktask is the Task Interpreter (§4.E): it drives a single
// scancheck.CheckTask to completion, tick by tick, emitting findings and
// recording every step. Grown from pkg/runner's per-job drive loop
// (check-interrupt, run-one-unit, record-result, repeat), retargeted from
// "run one HTTP probe" to "tick one check state machine".
package checktask

import (
	"context"

	"github.com/waftester/scanengine/pkg/scancheck"
	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scanevents"
	"github.com/waftester/scanengine/pkg/scanhistory"
)

// Result is what Run returns once a task reaches a terminal state.
type Result struct {
	Findings []scancheck.Finding
	Output   any
	Steps    []scanhistory.StepExecutionRecord
}

// Run drives task one tick at a time until it reports StepDone, the
// caller's context is cancelled, or a step returns an error. Before each
// tick it checks interrupted(); if that returns a non-nil reason, Run
// stops immediately and returns a *scanerrors.Interrupted (§4.E step 1).
//
// Findings from every step are appended, in order, to the returned
// Result.Findings (step 3). Each step produces one
// scanhistory.StepExecutionRecord capturing stateBefore/stateAfter/result
// (steps 2, 4, 5). Errors a step raises as *scanerrors.RunnableError pass
// through unchanged; anything else is wrapped as CodeUnknownCheckError
// (step 6).
func Run(ctx context.Context, task scancheck.CheckTask, checkID, targetRequestID string, bus *scanevents.Bus, interrupted func() *scanerrors.InterruptReason) (Result, error) {
	var result Result

	for {
		if reason := interrupted(); reason != nil {
			return result, &scanerrors.Interrupted{Reason: *reason}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		stepName := task.CurrentStepName()
		stateBefore := task.CurrentState()

		stepResult, err := task.Tick(ctx)
		if err != nil {
			if _, ok := scanerrors.AsRunnable(err); ok {
				return result, err
			}
			return result, scanerrors.Wrap(scanerrors.CodeUnknownCheckError, "check step raised an unclassified error", err)
		}

		for _, f := range stepResult.Findings {
			result.Findings = append(result.Findings, f)
			bus.Emit(scanevents.Finding{
				TargetRequestID: targetRequestID,
				CheckID:         checkID,
				Finding:         f,
			})
		}

		record := scanhistory.StepExecutionRecord{
			StepName:    stepName,
			StateBefore: stateBefore,
			StateAfter:  stepResult.State,
			Findings:    stepResult.Findings,
		}
		switch stepResult.Status {
		case scancheck.StepDone:
			record.Result = scanhistory.StepResultDone
			result.Steps = append(result.Steps, record)
			result.Output = task.Output()
			return result, nil
		case scancheck.StepContinue:
			record.Result = scanhistory.StepResultContinue
			record.NextStep = stepResult.NextStep
			result.Steps = append(result.Steps, record)
		default:
			return result, scanerrors.New(scanerrors.CodeUnknownCheckError, "step returned an unknown status")
		}
	}
}
