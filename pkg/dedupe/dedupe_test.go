package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRun_FirstClaimWins(t *testing.T) {
	idx := New()
	assert.True(t, idx.ShouldRun("check-a", "key-1"))
	assert.False(t, idx.ShouldRun("check-a", "key-1"))
	assert.True(t, idx.ShouldRun("check-a", "key-2"))
	assert.True(t, idx.ShouldRun("check-b", "key-1"))
}

func TestSnapshot_IsolatesMutations(t *testing.T) {
	idx := New()
	idx.ShouldRun("check-a", "key-1")

	snap := idx.Snapshot()
	assert.False(t, snap.ShouldRun("check-a", "key-1"))

	assert.True(t, snap.ShouldRun("check-a", "key-2"))
	assert.True(t, idx.ShouldRun("check-a", "key-2"))
}

func TestSeed_PreClaimsKeys(t *testing.T) {
	idx := New()
	idx.Seed("check-a", []string{"key-1", "key-2"})

	assert.False(t, idx.ShouldRun("check-a", "key-1"))
	assert.False(t, idx.ShouldRun("check-a", "key-2"))
	assert.True(t, idx.ShouldRun("check-a", "key-3"))
}

func TestDefaultKey_DistinctComponentsNeverCollide(t *testing.T) {
	a := DefaultKey("host", 8080, "1/path")
	b := DefaultKey("host", 80801, "path")
	assert.NotEqual(t, a, b)
}
