// Package scanerrors defines the scan runner's stable error taxonomy
// (§7): plan-time errors, per-check failures, and the sentinel errors
// used for control flow (cancellation, illegal mutator calls).
//
// Error codes are stable strings so they survive being carried in events
// and history records, following the sentinel-error convention in
// pkg/finding/errors.go and pkg/runner/errors.go.
package scanerrors

import (
	"errors"
	"fmt"
)

// Code is one of the stable error codes from spec §7.
type Code string

const (
	CodeRequestNotFound    Code = "REQUEST_NOT_FOUND"
	CodeUnknownDependency  Code = "UNKNOWN_DEPENDENCY"
	CodeCyclicDependencies Code = "CYCLIC_DEPENDENCIES"
	CodeCheckTimeout       Code = "CHECK_TIMEOUT"
	CodeUnknownCheckError  Code = "UNKNOWN_CHECK_ERROR"
	CodeScanAlreadyRunning Code = "SCAN_ALREADY_RUNNING"
)

// RunnableError is a classified error carrying one of the stable codes
// above. The Task Interpreter and Batch Executor use this to decide how
// a check failure is recorded and reported; anything else thrown by
// check code is wrapped as CodeUnknownCheckError.
type RunnableError struct {
	Code    Code
	Message string
	Err     error
}

func (e *RunnableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunnableError) Unwrap() error { return e.Err }

// New builds a RunnableError with the given code and message.
func New(code Code, message string) *RunnableError {
	return &RunnableError{Code: code, Message: message}
}

// Wrap builds a RunnableError with the given code, wrapping an
// underlying error.
func Wrap(code Code, message string, err error) *RunnableError {
	return &RunnableError{Code: code, Message: message, Err: err}
}

// AsRunnable reports whether err is (or wraps) a *RunnableError and
// returns it.
func AsRunnable(err error) (*RunnableError, bool) {
	var re *RunnableError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Sentinel errors for control-flow conditions that callers check with
// errors.Is, mirroring pkg/runner/errors.go.
var (
	// ErrAlreadyRunning is returned by Run when a scan is already (or
	// still) in progress on this runner.
	ErrAlreadyRunning = errors.New("scanrunner: scan already running")

	// ErrNotRunning is returned by mutators that are only valid before a
	// scan starts (e.g. ExternalDedupeKeys) once a scan has started.
	ErrNotRunning = errors.New("scanrunner: external dedupe keys only valid before run")
)

// InterruptReason is why a running scan stopped early.
type InterruptReason string

const (
	ReasonCancelled InterruptReason = "Cancelled"
	ReasonTimeout   InterruptReason = "Timeout"
)

// Interrupted is raised at any suspension point once interruptReason has
// been set; it unwinds every level (task, batch, target, scan) per §5.
type Interrupted struct {
	Reason InterruptReason
}

func (e *Interrupted) Error() string {
	return fmt.Sprintf("scan interrupted: %s", e.Reason)
}

// AsInterrupted reports whether err is (or wraps) an *Interrupted.
func AsInterrupted(err error) (*Interrupted, bool) {
	var in *Interrupted
	if errors.As(err, &in) {
		return in, true
	}
	return nil, false
}
