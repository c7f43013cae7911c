package scancheck

import "time"

// ScanConfig controls concurrency, aggressivity and timeouts for one run
// of the Scan Runner. Timeout fields are expressed in whole seconds to
// match the host configuration surface; 0 disables the corresponding
// timeout.
type ScanConfig struct {
	// Aggressivity is the configured strength tier; checks compare this
	// against their declared MinAggressivity.
	Aggressivity int

	// Severities is the set of severities enabled for this scan. A check
	// runs only if its CheckMetadata.Severities intersects this set.
	Severities []Severity

	// InScopeOnly restricts targets to those the Host SDK reports as
	// in-scope. Enforcement lives in the Scan Runner, not here.
	InScopeOnly bool

	ConcurrentTargets  int
	ConcurrentChecks   int
	ConcurrentRequests int
	RequestsDelayMs    int

	// ScanTimeout is the whole-scan wall-clock budget in seconds; 0
	// disables it.
	ScanTimeout int

	// CheckTimeout is the per-check, per-target budget in seconds; 0
	// disables it.
	CheckTimeout int
}

// DefaultScanConfig returns a ScanConfig with conservative, always-valid
// defaults, following the teacher's convention of defaulting invalid or
// zero-value fields rather than requiring every caller to fill every
// field (see pkg/core/executor.go's NewExecutor).
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Aggressivity:       1,
		Severities:         []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical},
		InScopeOnly:        true,
		ConcurrentTargets:  5,
		ConcurrentChecks:   5,
		ConcurrentRequests: 10,
		RequestsDelayMs:    0,
		ScanTimeout:        0,
		CheckTimeout:       30,
	}
}

// Normalized returns a copy of cfg with non-positive concurrency fields
// replaced by DefaultScanConfig's values, matching NewExecutor's
// validate-and-apply-defaults pattern instead of erroring on a caller
// that left a field at its zero value.
func (c ScanConfig) Normalized() ScanConfig {
	d := DefaultScanConfig()
	if c.ConcurrentTargets <= 0 {
		c.ConcurrentTargets = d.ConcurrentTargets
	}
	if c.ConcurrentChecks <= 0 {
		c.ConcurrentChecks = d.ConcurrentChecks
	}
	if c.ConcurrentRequests <= 0 {
		c.ConcurrentRequests = d.ConcurrentRequests
	}
	if c.RequestsDelayMs < 0 {
		c.RequestsDelayMs = 0
	}
	if c.ScanTimeout < 0 {
		c.ScanTimeout = 0
	}
	if c.CheckTimeout < 0 {
		c.CheckTimeout = 0
	}
	return c
}

// HasSeverity reports whether sev is enabled by this config.
func (c ScanConfig) HasSeverity(sev Severity) bool {
	for _, s := range c.Severities {
		if s == sev {
			return true
		}
	}
	return false
}

// ScanTimeoutDuration returns ScanTimeout as a time.Duration, or 0 if
// disabled.
func (c ScanConfig) ScanTimeoutDuration() time.Duration {
	if c.ScanTimeout <= 0 {
		return 0
	}
	return time.Duration(c.ScanTimeout) * time.Second
}

// CheckTimeoutDuration returns CheckTimeout as a time.Duration, or 0 if
// disabled.
func (c ScanConfig) CheckTimeoutDuration() time.Duration {
	if c.CheckTimeout <= 0 {
		return 0
	}
	return time.Duration(c.CheckTimeout) * time.Second
}

// RequestsDelay returns RequestsDelayMs as a time.Duration.
func (c ScanConfig) RequestsDelay() time.Duration {
	return time.Duration(c.RequestsDelayMs) * time.Millisecond
}
