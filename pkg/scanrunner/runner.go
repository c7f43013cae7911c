// Package scanrunner is the top-level Scan Runner (§4.G): it owns the
// scan's lifecycle state machine, drives targets and batches through the
// registry's plan via the Batch Executor, and exposes the event bus and
// execution history to the host. Grown from pkg/core/executor.go's
// Idle/Running/Finished state machine and pkg/scanner.Dispatcher's
// bounded-target-worker-pool shape, merged into one orchestrator that
// spans both.
package scanrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/waftester/scanengine/pkg/batchexec"
	"github.com/waftester/scanengine/pkg/checkregistry"
	"github.com/waftester/scanengine/pkg/dedupe"
	"github.com/waftester/scanengine/pkg/hostsdk"
	"github.com/waftester/scanengine/pkg/requestqueue"
	"github.com/waftester/scanengine/pkg/scancheck"
	"github.com/waftester/scanengine/pkg/scancontext"
	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scanevents"
	"github.com/waftester/scanengine/pkg/scanhistory"
)

// State is the Scan Runner's lifecycle state (§4.G).
type State string

const (
	StateIdle        State = "idle"
	StateRunning     State = "running"
	StateFinished    State = "finished"
	StateInterrupted State = "interrupted"
	StateErrored     State = "errored"
)

// TargetResult is one target's findings from a completed scan.
type TargetResult struct {
	TargetRequestID string
	Findings        []scancheck.Finding
}

// ScanResult is what Run returns once every target has been processed or
// the scan was interrupted.
type ScanResult struct {
	Targets     []TargetResult
	Interrupted bool
	Reason      scanerrors.InterruptReason
}

// Runner is one reusable Scan Runner instance. A Runner runs at most one
// scan at a time (§4.G invariant); construct a new Runner, or wait for
// State() to return StateIdle again, to run another.
type Runner struct {
	registry    *checkregistry.Registry
	sdk         hostsdk.SDK
	bus         *scanevents.Bus
	history     *scanhistory.Recorder
	dedupeIndex *dedupe.Index

	mu              sync.Mutex
	state           State
	interruptReason *scanerrors.InterruptReason
	queue           *requestqueue.Queue
	cancelTimer     context.CancelFunc
}

// New builds an idle Runner around a check registry and a host SDK.
func New(registry *checkregistry.Registry, sdk hostsdk.SDK) *Runner {
	return &Runner{
		registry:    registry,
		sdk:         sdk,
		bus:         scanevents.NewBus(),
		history:     scanhistory.NewRecorder(),
		dedupeIndex: dedupe.New(),
		state:       StateIdle,
	}
}

// On registers a handler for events this scan emits.
func (r *Runner) On(t scanevents.EventType, h scanevents.Handler) { r.bus.On(t, h) }

// State reports the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// GetExecutionHistory returns every check execution recorded so far.
func (r *Runner) GetExecutionHistory() []scanhistory.CheckExecutionRecord {
	return r.history.Snapshot()
}

// ExternalDedupeKeys seeds the dedupe index with keys already claimed by
// a prior run, so this run treats them as already covered. Valid only
// before Run starts (§4.G).
func (r *Runner) ExternalDedupeKeys(claims map[string][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return scanerrors.ErrNotRunning
	}
	for checkID, keys := range claims {
		r.dedupeIndex.Seed(checkID, keys)
	}
	return nil
}

// Cancel requests that a running scan stop as soon as possible. Idempotent;
// a no-op if the scan is not running.
func (r *Runner) Cancel(reason scanerrors.InterruptReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning || r.interruptReason != nil {
		return
	}
	r.interruptReason = &reason
	if r.queue != nil {
		r.queue.Interrupt(reason)
	}
}

func (r *Runner) currentInterrupt() *scanerrors.InterruptReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interruptReason
}

// Estimate counts the checks that would run against requestIDs without
// running any of them. It clones the dedupe index before counting so
// estimation never consumes a real claim a later Run would need (§9
// design note (c)).
func (r *Runner) Estimate(ctx context.Context, config scancheck.ScanConfig, requestIDs []string) (int, error) {
	config = config.Normalized()
	plan, err := r.registry.Plan()
	if err != nil {
		return 0, err
	}
	snapshot := r.dedupeIndex.Snapshot()
	findings := batchexec.NewFindingsTracker()

	count := 0
	for _, requestID := range requestIDs {
		exch, ok, err := r.sdk.Get(ctx, requestID)
		if err != nil || !ok {
			continue
		}
		if config.InScopeOnly {
			if inScope, err := r.sdk.InScope(ctx, exch.Request); err != nil || !inScope {
				continue
			}
		}
		target := scancheck.ScanTarget{RequestID: requestID, HasResponse: exch.Response != nil}
		for _, batch := range plan {
			for _, def := range batch {
				if !def.Metadata.HasSeverityOverlap(config.Severities) {
					continue
				}
				if !def.Metadata.MeetsAggressivity(config.Aggressivity) {
					continue
				}
				if def.When != nil && !def.When(target) {
					continue
				}
				if def.Metadata.SkipIfFoundBy != "" && findings.HasFindings(def.Metadata.SkipIfFoundBy) {
					continue
				}
				if def.DedupeKey != nil && !snapshot.ShouldRun(def.Metadata.ID, def.DedupeKey(target)) {
					continue
				}
				count++
			}
		}
	}
	return count, nil
}

// Run starts a scan against requestIDs and blocks until every target has
// been processed or the scan is interrupted. Only one Run may be active
// on a Runner at a time (§4.G).
func (r *Runner) Run(ctx context.Context, config scancheck.ScanConfig, requestIDs []string) (ScanResult, error) {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return ScanResult{}, scanerrors.ErrAlreadyRunning
	}
	config = config.Normalized()
	r.state = StateRunning
	r.interruptReason = nil
	r.queue = requestqueue.New(r.sdk, r.bus, config.ConcurrentRequests, config.RequestsDelayMs)
	r.mu.Unlock()

	scanCtx, cancel := context.WithCancel(ctx)
	if d := config.ScanTimeoutDuration(); d > 0 {
		timerCtx, timerCancel := context.WithTimeout(scanCtx, d)
		r.mu.Lock()
		r.cancelTimer = timerCancel
		r.mu.Unlock()
		go func() {
			<-timerCtx.Done()
			if timerCtx.Err() == context.DeadlineExceeded {
				r.Cancel(scanerrors.ReasonTimeout)
			}
		}()
	}
	defer cancel()

	r.bus.Emit(scanevents.Started{})

	plan, err := r.registry.Plan()
	if err != nil {
		r.mu.Lock()
		r.state = StateErrored
		r.mu.Unlock()
		r.bus.Emit(scanevents.Finished{})
		return ScanResult{}, err
	}

	findings := batchexec.NewFindingsTracker()
	result := ScanResult{}
	var resultsMu sync.Mutex

	sem := make(chan struct{}, config.ConcurrentTargets)
	var wg sync.WaitGroup

targetLoop:
	for _, requestID := range requestIDs {
		if reason := r.currentInterrupt(); reason != nil {
			break targetLoop
		}

		select {
		case sem <- struct{}{}:
		case <-scanCtx.Done():
			break targetLoop
		}

		wg.Add(1)
		go func(requestID string) {
			defer wg.Done()
			defer func() { <-sem }()

			// Merge targetResult unconditionally: even when runTarget
			// returns an error (interrupted mid-target, or the target
			// itself could not be resolved), whatever findings and
			// identity it already collected must still surface in the
			// scan result rather than being dropped on the floor (§7).
			targetResult, _ := r.runTarget(scanCtx, config, plan, findings, requestID)
			resultsMu.Lock()
			result.Targets = append(result.Targets, targetResult)
			resultsMu.Unlock()
		}(requestID)
	}

	wg.Wait()

	r.mu.Lock()
	reason := r.interruptReason
	if reason != nil {
		r.state = StateInterrupted
	} else {
		r.state = StateFinished
	}
	r.mu.Unlock()

	if reason != nil {
		result.Interrupted = true
		result.Reason = *reason
		r.bus.Emit(scanevents.Interrupted{Reason: string(*reason)})
	}
	r.bus.Emit(scanevents.Finished{})

	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()

	return result, nil
}

func (r *Runner) runTarget(ctx context.Context, config scancheck.ScanConfig, plan [][]scancheck.CheckDefinition, findings *batchexec.FindingsTracker, requestID string) (TargetResult, error) {
	exch, ok, err := r.sdk.Get(ctx, requestID)
	if err != nil {
		return TargetResult{TargetRequestID: requestID}, scanerrors.Wrap(scanerrors.CodeRequestNotFound, fmt.Sprintf("resolving target %q", requestID), err)
	}
	if !ok {
		return TargetResult{TargetRequestID: requestID}, scanerrors.New(scanerrors.CodeRequestNotFound, fmt.Sprintf("target %q not found", requestID))
	}
	if config.InScopeOnly {
		inScope, err := r.sdk.InScope(ctx, exch.Request)
		if err != nil || !inScope {
			return TargetResult{TargetRequestID: requestID}, nil
		}
	}

	target := scancheck.ScanTarget{RequestID: requestID, HasResponse: exch.Response != nil}
	dependencies := scancontext.NewDependencies()

	// One Context per target, specialized per check via WithCheck, so every
	// check dispatched against this target shares the same HTML cache
	// instead of each paying its own parse cost (§4.C).
	baseCtx := scancontext.New(target, config, r.sdk, r.queue, "", dependencies)

	checkTimeout := func() time.Duration { return config.CheckTimeoutDuration() }
	executor := batchexec.New(r.dedupeIndex, findings, r.bus, r.history, config.ConcurrentChecks,
		checkTimeout, r.currentInterrupt, nil)

	var targetFindings []scancheck.Finding
	recordOutput := func(checkID string, output any) { dependencies.Set(checkID, output) }

	newRuntimeContext := func(checkID string) scancheck.RuntimeContext {
		return baseCtx.WithCheck(checkID)
	}

	// collectSince folds every completed record this target produced since
	// before into targetFindings; called on both the happy path and an
	// interrupted/errored batch so findings already recorded in history are
	// never dropped from the result (§7: findings accumulated so far are
	// preserved on interrupt).
	collectSince := func(before []scanhistory.CheckExecutionRecord) {
		after := r.history.Snapshot()
		for _, rec := range after[len(before):] {
			if rec.TargetRequestID == requestID && rec.Status == scanhistory.StatusCompleted {
				targetFindings = append(targetFindings, extractFindings(rec)...)
			}
		}
	}

	for _, batch := range plan {
		if reason := r.currentInterrupt(); reason != nil {
			return TargetResult{TargetRequestID: requestID, Findings: targetFindings}, &scanerrors.Interrupted{Reason: *reason}
		}

		before := r.history.Snapshot()
		err := executor.Run(ctx, batch, target, config, newRuntimeContext, recordOutput)
		collectSince(before)
		if err != nil {
			return TargetResult{TargetRequestID: requestID, Findings: targetFindings}, err
		}
	}

	return TargetResult{TargetRequestID: requestID, Findings: targetFindings}, nil
}

func extractFindings(rec scanhistory.CheckExecutionRecord) []scancheck.Finding {
	var out []scancheck.Finding
	for _, step := range rec.Steps {
		out = append(out, step.Findings...)
	}
	return out
}
