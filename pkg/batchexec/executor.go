// Package batchexec is the Batch Executor (§4.F): given one batch of
// applicable checks from the registry's plan, it filters, dispatches, and
// bounds the concurrent execution of each against one target, folding
// results into the target's findings and dependency-output maps. Grown
// from pkg/runner/pool.go's bounded-worker-pool shape (channel semaphore
// plus WaitGroup), retargeted from "pool of HTTP probes" to "pool of
// check tasks".
package batchexec

import (
	"context"
	"sync"
	"time"

	"github.com/waftester/scanengine/pkg/checktask"
	"github.com/waftester/scanengine/pkg/dedupe"
	"github.com/waftester/scanengine/pkg/scancheck"
	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scanevents"
	"github.com/waftester/scanengine/pkg/scanhistory"
)

// FindingsTracker reports whether a check has produced any finding
// anywhere in the scan so far, the information skipIfFoundBy filters on.
// It is shared across every target and batch in one scan.
type FindingsTracker struct {
	mu    sync.Mutex
	found map[string]bool
}

// NewFindingsTracker returns an empty tracker.
func NewFindingsTracker() *FindingsTracker {
	return &FindingsTracker{found: make(map[string]bool)}
}

func (t *FindingsTracker) Mark(checkID string, hasFindings bool) {
	if !hasFindings {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.found[checkID] = true
}

func (t *FindingsTracker) HasFindings(checkID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.found[checkID]
}

// Executor runs one batch of checks against one target.
type Executor struct {
	dedupeIndex *dedupe.Index
	findings    *FindingsTracker
	bus         *scanevents.Bus
	history     *scanhistory.Recorder
	concurrency int
	checkTimeout func() time.Duration
	interrupted func() *scanerrors.InterruptReason
	checkKey    func(scancheck.ScanTarget) string
}

// New builds an Executor. checkTimeout returns the per-check execution
// budget (§4.F step 2(d)); interrupted reports the scan-wide interrupt
// reason, checked before each check is dispatched and inside every tick
// of the task it runs. checkKey derives the default dedupe key from a
// target for checks that don't supply their own DedupeKey.
func New(dedupeIndex *dedupe.Index, findings *FindingsTracker, bus *scanevents.Bus, history *scanhistory.Recorder, concurrency int, checkTimeout func() time.Duration, interrupted func() *scanerrors.InterruptReason, checkKey func(scancheck.ScanTarget) string) *Executor {
	return &Executor{
		dedupeIndex:  dedupeIndex,
		findings:     findings,
		bus:          bus,
		history:      history,
		concurrency:  concurrency,
		checkTimeout: checkTimeout,
		interrupted:  interrupted,
		checkKey:     checkKey,
	}
}

// applicable reports whether def should run against target under config,
// per the ordered filter in §4.F step 1: severity overlap, aggressivity,
// When predicate, then skipIfFoundBy. It makes no dedupe claim; Run claims
// the dedupe key only after applicable returns true, so claims are never
// consumed by checks filtered out here.
func (e *Executor) applicable(def scancheck.CheckDefinition, target scancheck.ScanTarget, config scancheck.ScanConfig) bool {
	if !def.Metadata.HasSeverityOverlap(config.Severities) {
		return false
	}
	if !def.Metadata.MeetsAggressivity(config.Aggressivity) {
		return false
	}
	if def.When != nil && !def.When(target) {
		return false
	}
	if def.Metadata.SkipIfFoundBy != "" && e.findings.HasFindings(def.Metadata.SkipIfFoundBy) {
		return false
	}
	return true
}

// dedupeKeyFor returns the key to claim in the dedupe index for def
// against target, and whether a claim applies at all. A check with
// neither its own DedupeKey nor an injected default key has no cross-target
// identity to dedupe on, so it is never filtered by the index (§4.B: the
// claim only fires "if check.dedupeKey defined"); falling back to the
// check id itself would claim a single, target-independent key and
// silently collapse the check out of every target after the first.
func (e *Executor) dedupeKeyFor(def scancheck.CheckDefinition, target scancheck.ScanTarget) (string, bool) {
	if def.DedupeKey != nil {
		return def.DedupeKey(target), true
	}
	if e.checkKey != nil {
		return e.checkKey(target), true
	}
	return "", false
}

// Run executes every applicable check in batch against target,
// concurrency-bounded, each under its own per-check timeout.
// newRuntimeContext constructs the RuntimeContext for one check id;
// recordOutput stores a completed check's output so later batches can
// see it via RuntimeContext.DependencyOutput (§4.F step 2).
//
// Run never returns an error for an individual check's failure — those
// are recorded in history and reported via scanevents.CheckFailed. It
// returns a non-nil error only if the scan was interrupted mid-batch
// (§4.F step 2(e)), and stops dispatching further checks once that
// happens, or if ctx is done while waiting for a free slot, in which case
// it waits for the dispatched checks and returns ctx.Err().
func (e *Executor) Run(ctx context.Context, batch []scancheck.CheckDefinition, target scancheck.ScanTarget, config scancheck.ScanConfig, newRuntimeContext func(checkID string) scancheck.RuntimeContext, recordOutput func(checkID string, output any)) error {
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var interruptErr error

	for _, def := range batch {
		if reason := e.interrupted(); reason != nil {
			interruptErr = &scanerrors.Interrupted{Reason: *reason}
			break
		}

		def := def

		if !e.applicable(def, target, config) {
			continue
		}
		if key, ok := e.dedupeKeyFor(def, target); ok && !e.dedupeIndex.ShouldRun(def.Metadata.ID, key) {
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			err := e.runOne(ctx, def, target, newRuntimeContext, recordOutput)
			if err == nil {
				return
			}
			if in, ok := scanerrors.AsInterrupted(err); ok {
				mu.Lock()
				if interruptErr == nil {
					interruptErr = in
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return interruptErr
}

func (e *Executor) runOne(ctx context.Context, def scancheck.CheckDefinition, target scancheck.ScanTarget, newRuntimeContext func(checkID string) scancheck.RuntimeContext, recordOutput func(checkID string, output any)) error {
	taskCtx := ctx
	if e.checkTimeout != nil {
		if d := e.checkTimeout(); d > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	rc := newRuntimeContext(def.Metadata.ID)
	task := def.Create(rc)

	e.bus.Emit(scanevents.CheckStarted{CheckID: def.Metadata.ID, TargetRequestID: target.RequestID})

	result, err := checktask.Run(taskCtx, task, def.Metadata.ID, target.RequestID, e.bus, e.interrupted)

	if err != nil {
		if in, ok := scanerrors.AsInterrupted(err); ok {
			return in
		}
		code, message := string(scanerrors.CodeUnknownCheckError), err.Error()
		if taskCtx.Err() == context.DeadlineExceeded {
			code, message = string(scanerrors.CodeCheckTimeout), "check exceeded its execution budget"
		} else if re, ok := scanerrors.AsRunnable(err); ok {
			code, message = string(re.Code), re.Message
		}
		e.bus.Emit(scanevents.CheckFailed{CheckID: def.Metadata.ID, TargetRequestID: target.RequestID, ErrorCode: code, ErrorMessage: message})
		e.history.Append(scanhistory.CheckExecutionRecord{
			CheckID:         def.Metadata.ID,
			TargetRequestID: target.RequestID,
			Steps:           result.Steps,
			Status:          scanhistory.StatusFailed,
			ErrorCode:       code,
			ErrorMessage:    message,
		})
		e.bus.Emit(scanevents.CheckFinished{CheckID: def.Metadata.ID, TargetRequestID: target.RequestID})
		return nil
	}

	e.findings.Mark(def.Metadata.ID, len(result.Findings) > 0)
	recordOutput(def.Metadata.ID, result.Output)
	e.history.Append(scanhistory.CheckExecutionRecord{
		CheckID:         def.Metadata.ID,
		TargetRequestID: target.RequestID,
		Steps:           result.Steps,
		Status:          scanhistory.StatusCompleted,
		FinalOutput:     result.Output,
	})
	e.bus.Emit(scanevents.CheckFinished{CheckID: def.Metadata.ID, TargetRequestID: target.RequestID})
	return nil
}
