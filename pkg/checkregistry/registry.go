// Package checkregistry is the Check Registry & Planner (§4.A): it
// validates registered checks, builds the dependsOn DAG, and computes the
// batched execution plan via Kahn-style topological sort. Registration
// itself is grown from pkg/scanner/scanner.go's Dispatcher — an
// order-preserving map plus a slice recording insertion order, so
// iteration is deterministic even though a Go map is not.
package checkregistry

import (
	"fmt"

	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scancheck"
)

// Registry holds the set of registered checks in insertion order and
// computes their execution plan.
type Registry struct {
	byID  map[string]scancheck.CheckDefinition
	order []string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]scancheck.CheckDefinition)}
}

// Register adds a check definition. Registering the same ID twice
// replaces the earlier definition but keeps its original position in
// registration order, matching pkg/scanner.Dispatcher.Register.
func (r *Registry) Register(def scancheck.CheckDefinition) {
	if _, exists := r.byID[def.Metadata.ID]; !exists {
		r.order = append(r.order, def.Metadata.ID)
	}
	r.byID[def.Metadata.ID] = def
}

// Get returns the definition for id, or (zero, false) if unregistered.
func (r *Registry) Get(id string) (scancheck.CheckDefinition, bool) {
	def, ok := r.byID[id]
	return def, ok
}

// All returns every registered definition, in registration order.
func (r *Registry) All() []scancheck.CheckDefinition {
	out := make([]scancheck.CheckDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Plan computes the batched execution plan: batch 0 holds every check
// with no unmet dependency, batch 1 the checks that become ready once
// batch 0 completes, and so on (§4.A). The result is stable for the
// lifetime of one scan.
func (r *Registry) Plan() ([][]scancheck.CheckDefinition, error) {
	inDegree := make(map[string]int, len(r.order))
	dependents := make(map[string][]string, len(r.order))

	for _, id := range r.order {
		inDegree[id] = 0
	}
	for _, id := range r.order {
		def := r.byID[id]
		for _, dep := range def.Metadata.DependsOn {
			if _, ok := r.byID[dep]; !ok {
				return nil, scanerrors.New(scanerrors.CodeUnknownDependency,
					fmt.Sprintf("check %q depends on unregistered check %q", id, dep))
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	remaining := len(r.order)
	// ready holds, per round, the ids with in-degree 0 this round, in
	// registration order (order within a batch is unspecified by spec,
	// but stable output makes tests deterministic).
	var batches [][]scancheck.CheckDefinition
	processed := make(map[string]bool, len(r.order))

	for remaining > 0 {
		var ready []string
		for _, id := range r.order {
			if !processed[id] && inDegree[id] == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			return nil, scanerrors.New(scanerrors.CodeCyclicDependencies, "dependency graph contains a cycle")
		}
		batch := make([]scancheck.CheckDefinition, 0, len(ready))
		for _, id := range ready {
			processed[id] = true
			batch = append(batch, r.byID[id])
			remaining--
		}
		for _, id := range ready {
			for _, dep := range dependents[id] {
				inDegree[dep]--
			}
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
