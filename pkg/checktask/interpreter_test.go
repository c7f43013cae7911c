package checktask_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/waftester/scanengine/pkg/checktask"
	"github.com/waftester/scanengine/pkg/hostsdk"
	"github.com/waftester/scanengine/pkg/scancheck"
	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scanevents"
)

type stubRuntimeContext struct {
	target scancheck.ScanTarget
}

func (s stubRuntimeContext) Target() scancheck.ScanTarget                   { return s.target }
func (s stubRuntimeContext) Config() scancheck.ScanConfig                   { return scancheck.DefaultScanConfig() }
func (s stubRuntimeContext) SDK() hostsdk.SDK                               { return nil }
func (s stubRuntimeContext) HTML(requestID string) (*html.Node, error)      { return nil, nil }
func (s stubRuntimeContext) DependencyOutput(checkID string) (any, bool)    { return nil, false }

func newTask(t *testing.T, steps map[string]scancheck.StepFunc) scancheck.CheckTask {
	t.Helper()
	rc := stubRuntimeContext{target: scancheck.ScanTarget{RequestID: "t1"}}
	return scancheck.NewStepMachineTask(rc, steps, "start", nil)
}

func neverInterrupted() *scanerrors.InterruptReason { return nil }

func TestRun_MultiStepAccumulatesFindingsInOrder(t *testing.T) {
	steps := map[string]scancheck.StepFunc{
		"start": func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
			f := scancheck.Finding{Name: "first"}
			return scancheck.ContinueWith("finish", nil, []scancheck.Finding{f}), nil
		},
		"finish": func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
			f := scancheck.Finding{Name: "second"}
			return scancheck.Done(nil, []scancheck.Finding{f}, "output-value"), nil
		},
	}
	task := newTask(t, steps)
	bus := scanevents.NewBus()
	var emitted []string
	bus.On(scanevents.TypeFinding, func(e scanevents.Event) {
		emitted = append(emitted, e.(scanevents.Finding).Finding.Name)
	})

	result, err := checktask.Run(context.Background(), task, "check-1", "t1", bus, neverInterrupted)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, emitted)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "output-value", result.Output)
	assert.Len(t, result.Steps, 2)
}

func TestRun_StopsImmediatelyWhenInterrupted(t *testing.T) {
	calls := 0
	steps := map[string]scancheck.StepFunc{
		"start": func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
			calls++
			return scancheck.Done(nil, nil, nil), nil
		},
	}
	task := newTask(t, steps)
	bus := scanevents.NewBus()

	reason := scanerrors.ReasonCancelled
	interrupted := func() *scanerrors.InterruptReason { return &reason }

	_, err := checktask.Run(context.Background(), task, "check-1", "t1", bus, interrupted)
	require.Error(t, err)
	_, ok := scanerrors.AsInterrupted(err)
	assert.True(t, ok)
	assert.Equal(t, 0, calls)
}

func TestRun_ClassifiesRunnableErrorUnchanged(t *testing.T) {
	steps := map[string]scancheck.StepFunc{
		"start": func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
			return scancheck.StepResult{}, scanerrors.New(scanerrors.CodeRequestNotFound, "gone")
		},
	}
	task := newTask(t, steps)
	bus := scanevents.NewBus()

	_, err := checktask.Run(context.Background(), task, "check-1", "t1", bus, neverInterrupted)
	require.Error(t, err)
	re, ok := scanerrors.AsRunnable(err)
	require.True(t, ok)
	assert.Equal(t, scanerrors.CodeRequestNotFound, re.Code)
}

func TestRun_WrapsUnclassifiedErrorAsUnknownCheckError(t *testing.T) {
	steps := map[string]scancheck.StepFunc{
		"start": func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
			return scancheck.StepResult{}, errors.New("boom")
		},
	}
	task := newTask(t, steps)
	bus := scanevents.NewBus()

	_, err := checktask.Run(context.Background(), task, "check-1", "t1", bus, neverInterrupted)
	require.Error(t, err)
	re, ok := scanerrors.AsRunnable(err)
	require.True(t, ok)
	assert.Equal(t, scanerrors.CodeUnknownCheckError, re.Code)
}
