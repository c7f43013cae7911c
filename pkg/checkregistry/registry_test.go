package checkregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scancheck"
)

func defWithDeps(id string, deps ...string) scancheck.CheckDefinition {
	return scancheck.CheckDefinition{
		Metadata: scancheck.CheckMetadata{
			ID:         id,
			Severities: []scancheck.Severity{scancheck.SeverityLow},
			DependsOn:  deps,
		},
	}
}

func TestPlan_BatchesRespectTopologicalLayering(t *testing.T) {
	r := New()
	r.Register(defWithDeps("A"))
	r.Register(defWithDeps("B", "A"))
	r.Register(defWithDeps("C", "A"))
	r.Register(defWithDeps("D", "B", "C"))

	plan, err := r.Plan()
	require.NoError(t, err)
	require.Len(t, plan, 3)

	batchOf := func(id string) int {
		for i, batch := range plan {
			for _, def := range batch {
				if def.Metadata.ID == id {
					return i
				}
			}
		}
		return -1
	}

	assert.Less(t, batchOf("A"), batchOf("B"))
	assert.Less(t, batchOf("A"), batchOf("C"))
	assert.Less(t, batchOf("B"), batchOf("D"))
	assert.Less(t, batchOf("C"), batchOf("D"))
}

func TestPlan_UnknownDependency(t *testing.T) {
	r := New()
	r.Register(defWithDeps("A", "ghost"))

	_, err := r.Plan()
	require.Error(t, err)

	re, ok := scanerrors.AsRunnable(err)
	require.True(t, ok)
	assert.Equal(t, scanerrors.CodeUnknownDependency, re.Code)
}

func TestPlan_CyclicDependency(t *testing.T) {
	r := New()
	r.Register(defWithDeps("A", "B"))
	r.Register(defWithDeps("B", "A"))

	_, err := r.Plan()
	require.Error(t, err)

	re, ok := scanerrors.AsRunnable(err)
	require.True(t, ok)
	assert.Equal(t, scanerrors.CodeCyclicDependencies, re.Code)
}

func TestPlan_NoDependencies_SingleBatch(t *testing.T) {
	r := New()
	r.Register(defWithDeps("A"))
	r.Register(defWithDeps("B"))
	r.Register(defWithDeps("C"))

	plan, err := r.Plan()
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Len(t, plan[0], 3)
}

// catalogFixture is the shape of a small YAML check catalog, one entry
// per check id and its declared dependencies, mirroring how a host might
// hand the registry a check list read from disk rather than built up in
// Go source.
type catalogFixture struct {
	Checks []struct {
		ID        string   `yaml:"id"`
		DependsOn []string `yaml:"dependsOn"`
	} `yaml:"checks"`
}

const checkCatalogYAML = `
checks:
  - id: csp-not-enforced
  - id: csp-clickjacking
    dependsOn: [csp-not-enforced]
  - id: csp-untrusted-script
  - id: cookie-flags
`

func TestPlan_YAMLCheckCatalogFixture(t *testing.T) {
	var catalog catalogFixture
	require.NoError(t, yaml.Unmarshal([]byte(checkCatalogYAML), &catalog))
	require.Len(t, catalog.Checks, 4)

	r := New()
	for _, c := range catalog.Checks {
		r.Register(defWithDeps(c.ID, c.DependsOn...))
	}

	plan, err := r.Plan()
	require.NoError(t, err)

	batchOf := func(id string) int {
		for i, batch := range plan {
			for _, def := range batch {
				if def.Metadata.ID == id {
					return i
				}
			}
		}
		return -1
	}

	assert.Less(t, batchOf("csp-not-enforced"), batchOf("csp-clickjacking"))
	assert.GreaterOrEqual(t, batchOf("csp-untrusted-script"), 0)
	assert.GreaterOrEqual(t, batchOf("cookie-flags"), 0)
}

func TestRegister_ReplacesInPlace(t *testing.T) {
	r := New()
	r.Register(defWithDeps("A"))
	r.Register(scancheck.CheckDefinition{Metadata: scancheck.CheckMetadata{ID: "A", Name: "updated"}})

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, "updated", all[0].Metadata.Name)
}
