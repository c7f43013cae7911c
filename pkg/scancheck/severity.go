// Package scancheck defines the data model shared between the scan runner
// core and the check plugins it drives: check metadata, the task
// state-machine contract, findings, targets, and scan configuration.
package scancheck

// Severity is the impact level of a Finding, or one of the levels a
// CheckMetadata declares it is capable of producing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Valid reports whether s is one of the five recognized severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// CheckType distinguishes checks that only read captured traffic from
// checks that issue their own HTTP requests through the Request Queue.
type CheckType string

const (
	TypePassive CheckType = "passive"
	TypeActive  CheckType = "active"
)
