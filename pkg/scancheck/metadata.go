package scancheck

// Aggressivity bounds the payload volume a check is allowed to use.
type Aggressivity struct {
	MinRequests int
	MaxRequests int
}

// CheckMetadata identifies a registered check and declares the
// conditions under which it is applicable: type, severities, tags,
// aggressivity bounds, dependencies, and dedupe-skip behavior.
type CheckMetadata struct {
	// ID is the check's stable identity, used as the key throughout the
	// engine (dedupe index, findings map, dependency outputs, history).
	ID string

	Name        string
	Description string
	Type        CheckType
	Tags        []string

	// Severities is the non-empty set of severities this check can
	// produce. A check only runs if this intersects ScanConfig.Severities.
	Severities []Severity

	// Aggressivity, if set, bounds the request volume the check issues.
	Aggressivity *Aggressivity

	// MinAggressivity, if set, is the minimum ScanConfig.Aggressivity
	// required for this check to run.
	MinAggressivity *int

	// DependsOn lists the IDs of checks that must complete for the same
	// target before this check may run.
	DependsOn []string

	// SkipIfFoundBy, if set, names a check ID; this check is skipped for
	// a target if that check has already produced findings anywhere in
	// the scan (§9 design note (b): the reference, not this check's own
	// ID, is what gets checked).
	SkipIfFoundBy string
}

// HasSeverityOverlap reports whether any of m.Severities appears in the
// given set.
func (m CheckMetadata) HasSeverityOverlap(enabled []Severity) bool {
	for _, want := range m.Severities {
		for _, have := range enabled {
			if want == have {
				return true
			}
		}
	}
	return false
}

// MeetsAggressivity reports whether the configured aggressivity is high
// enough to run this check. A check with no MinAggressivity always
// qualifies.
func (m CheckMetadata) MeetsAggressivity(configured int) bool {
	if m.MinAggressivity == nil {
		return true
	}
	return configured >= *m.MinAggressivity
}
