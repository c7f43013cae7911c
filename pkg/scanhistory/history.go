// Package scanhistory is the scan runner's append-only execution record
// (§3, §4.H). It is grown from pkg/history/store.go's ScanRecord shape,
// stripped of that file's JSON-to-disk persistence: the core persists
// nothing (§1 Non-goals), so the index lives in memory only, guarded the
// same way pkg/history.Store guards its in-memory index before a flush.
package scanhistory

import (
	"sync"

	"github.com/waftester/scanengine/pkg/scancheck"
)

// StepResultKind mirrors scancheck.StepStatus but is stored independently
// so a history record's shape never depends on a live CheckTask value.
type StepResultKind string

const (
	StepResultDone     StepResultKind = "done"
	StepResultContinue StepResultKind = "continue"
)

// StepExecutionRecord snapshots one tick of a CheckTask.
type StepExecutionRecord struct {
	StepName    string
	StateBefore any
	StateAfter  any
	Findings    []scancheck.Finding
	Result      StepResultKind
	NextStep    string // only meaningful when Result == StepResultContinue
}

// CheckExecutionStatus is the terminal status of one check's run against
// one target.
type CheckExecutionStatus string

const (
	StatusCompleted CheckExecutionStatus = "completed"
	StatusFailed    CheckExecutionStatus = "failed"
)

// CheckExecutionRecord is the permanent record of one (checkID, target)
// execution: every tick it took plus its terminal outcome.
type CheckExecutionRecord struct {
	CheckID         string
	TargetRequestID string
	Steps           []StepExecutionRecord
	Status          CheckExecutionStatus

	// FinalOutput is set when Status == StatusCompleted.
	FinalOutput any

	// ErrorCode/ErrorMessage are set when Status == StatusFailed.
	ErrorCode    string
	ErrorMessage string
}

// Recorder is the scan runner's exclusively-owned, append-only history.
// A record is appended after each check task terminates, completed or
// failed (§4.H).
type Recorder struct {
	mu      sync.Mutex
	records []CheckExecutionRecord
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append adds one terminal CheckExecutionRecord.
func (r *Recorder) Append(rec CheckExecutionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Snapshot returns an immutable copy of the history recorded so far, the
// contract getExecutionHistory() promises in §4.G.
func (r *Recorder) Snapshot() []CheckExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CheckExecutionRecord, len(r.records))
	copy(out, r.records)
	return out
}

// CompletedBefore reports whether checkID has a StatusCompleted record
// for targetRequestID among the first beforeIndex records of history —
// the dependency-ordering condition of §8 invariant 2.
func (r *Recorder) CompletedBefore(checkID, targetRequestID string, beforeIndex int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if i >= beforeIndex {
			break
		}
		if rec.CheckID == checkID && rec.TargetRequestID == targetRequestID && rec.Status == StatusCompleted {
			return true
		}
	}
	return false
}
