// Package scanevents is the scan runner's typed event bus (§4.H, §6).
// It replaces string-keyed dispatch with one struct per event variant,
// grown from pkg/output/events' BaseEvent/Event-interface shape, and a
// Bus modeled on pkg/output/dispatcher's fan-out — minus the
// writer/hook split, which belonged to the teacher's file-output and
// webhook integrations, both out of scope here (§1).
package scanevents

import "github.com/waftester/scanengine/pkg/scancheck"

// EventType names one of the event variants the scan runner emits.
type EventType string

const (
	TypeStarted           EventType = "scan:started"
	TypeFinished          EventType = "scan:finished"
	TypeInterrupted       EventType = "scan:interrupted"
	TypeCheckStarted      EventType = "scan:check-started"
	TypeCheckFinished     EventType = "scan:check-finished"
	TypeCheckFailed       EventType = "scan:check-failed"
	TypeFinding           EventType = "scan:finding"
	TypeRequestPending    EventType = "scan:request-pending"
	TypeRequestCompleted  EventType = "scan:request-completed"
)

// Event is the base interface every event variant satisfies.
type Event interface {
	Type() EventType
}

// Started is emitted exactly once, before any check events (§5).
type Started struct{}

func (Started) Type() EventType { return TypeStarted }

// Finished is emitted exactly once per Run, after all check events; the
// runner emits it on the plan-error return path as well as at the end of
// a completed or interrupted scan (§4.G).
type Finished struct{}

func (Finished) Type() EventType { return TypeFinished }

// Interrupted reports why a running scan stopped early.
type Interrupted struct {
	Reason string // "Cancelled" or "Timeout"
}

func (Interrupted) Type() EventType { return TypeInterrupted }

// CheckStarted precedes any Finding from that check, which precedes
// CheckFinished (§5 ordering guarantees).
type CheckStarted struct {
	CheckID         string
	TargetRequestID string
}

func (CheckStarted) Type() EventType { return TypeCheckStarted }

// CheckFinished fires on completion, success or failure.
type CheckFinished struct {
	CheckID         string
	TargetRequestID string
}

func (CheckFinished) Type() EventType { return TypeCheckFinished }

// CheckFailed is emitted in addition to CheckFinished when a check
// fails; failure is never fatal to the batch (§4.F step 6).
type CheckFailed struct {
	CheckID         string
	TargetRequestID string
	ErrorCode       string
	ErrorMessage    string
}

func (CheckFailed) Type() EventType { return TypeCheckFailed }

// Finding is emitted once per finding, in emission order, corresponding
// to exactly one CheckExecutionRecord.steps[*].findings entry (§3
// invariant 5).
type Finding struct {
	TargetRequestID string
	CheckID         string
	Finding         scancheck.Finding
}

func (Finding) Type() EventType { return TypeFinding }

// RequestPending is emitted by the Request Queue on enqueue, always
// before the matching RequestCompleted (§5).
type RequestPending struct {
	PendingRequestID string
	TargetRequestID  string
	CheckID          string
}

func (RequestPending) Type() EventType { return TypeRequestPending }

// RequestCompleted is emitted by the Request Queue after a host send
// succeeds.
type RequestCompleted struct {
	ID         string // the matching PendingRequestID
	RequestID  string
	ResponseID string
}

func (RequestCompleted) Type() EventType { return TypeRequestCompleted }
