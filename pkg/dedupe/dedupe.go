// Package dedupe implements the Dedupe Index (§3, §4.B): a per-check set
// of claimed keys that suppresses redundant executions of the same check
// across targets. The claim test ("key absent -> insert, return true;
// present -> return false") is grown from pkg/regexcache's
// sync.Map/LoadOrStore memoize-once-per-pattern idiom, repurposed from
// "compile once per pattern" to "run once per (checkID, key)".
package dedupe

import "sync"

// Index tracks claimed (checkID, key) pairs. The zero value is not
// usable; construct with New.
type Index struct {
	mu     sync.Mutex
	claims map[string]map[string]struct{}
}

// New returns an empty Index.
func New() *Index {
	return &Index{claims: make(map[string]map[string]struct{})}
}

// ShouldRun atomically tests-and-inserts (checkID, key). Returns true the
// first time this pair is seen, false on every subsequent call — the
// "first to claim wins" tie-break §4.F requires when filtering a batch
// in registration order.
func (idx *Index) ShouldRun(checkID, key string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	keys, ok := idx.claims[checkID]
	if !ok {
		keys = make(map[string]struct{})
		idx.claims[checkID] = keys
	}
	if _, claimed := keys[key]; claimed {
		return false
	}
	keys[key] = struct{}{}
	return true
}

// Snapshot returns a deep, independent copy of the index. estimate()
// (§4.G) clones the index before counting applicable checks so that
// estimation never pollutes the real index a later run would use (§9
// open question (c)).
func (idx *Index) Snapshot() *Index {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := New()
	for checkID, keys := range idx.claims {
		cp := make(map[string]struct{}, len(keys))
		for k := range keys {
			cp[k] = struct{}{}
		}
		out.claims[checkID] = cp
	}
	return out
}

// Seed pre-installs a set of already-claimed keys for a check, used by
// ExternalDedupeKeys (§4.G) to resume/merge with a prior scan.
func (idx *Index) Seed(checkID string, keys []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	set, ok := idx.claims[checkID]
	if !ok {
		set = make(map[string]struct{})
		idx.claims[checkID] = set
	}
	for _, k := range keys {
		set[k] = struct{}{}
	}
}
