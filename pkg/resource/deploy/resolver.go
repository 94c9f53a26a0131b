// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/util/contract"
	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// Resolver turns a Registry into a single total deployment order that a downstream executor can
// trust blindly.  The order is priority-class-major: each artifact type maps to a small integer
// class reflecting known platform constraints, and explicit dependency edges refine the order
// within (and, when declared, across) classes.  An explicit dependency always wins over the class
// default: an artifact is never ordered before something it depends on.
type Resolver struct {
	registry *Registry
}

// CyclicDependencyError indicates the dependency graph contains a cycle.  Cycle holds the minimal
// loop found, in dependency order: each artifact depends on the next, and the last depends on the
// first.
type CyclicDependencyError struct {
	Cycle []resource.ID
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, 0, len(e.Cycle)+1)
	for _, id := range e.Cycle {
		parts = append(parts, string(id))
	}
	if len(e.Cycle) > 0 {
		parts = append(parts, string(e.Cycle[0]))
	}
	return fmt.Sprintf("cyclic dependency detected: %v", strings.Join(parts, " -> "))
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry *Registry) *Resolver {
	contract.Require(registry != nil, "registry")
	return &Resolver{registry: registry}
}

// Validate checks that every declared dependency refers to a registered artifact.  All violations
// are reported, not just the first.
func (r *Resolver) Validate() error {
	var result *multierror.Error
	for _, a := range r.registry.All() {
		for _, dep := range a.Dependencies {
			if !r.registry.Has(dep) {
				result = multierror.Append(result, fmt.Errorf(
					"artifact '%v' depends on unknown artifact '%v'", a.ID, dep))
			}
		}
	}
	return result.ErrorOrNil()
}

// Resolve produces the total deployment order over all registered artifacts.  The same registry
// content always yields the same order.  Dependencies that refer to unregistered IDs are ignored
// here; Validate reports them.
func (r *Resolver) Resolve() ([]resource.ID, error) {
	arts := r.registry.All()

	// Class-major default order: sort by priority class, stable, so insertion order breaks ties.
	sort.SliceStable(arts, func(i, j int) bool {
		return arts[i].Type.PriorityClass() < arts[j].Type.PriorityClass()
	})

	// Place artifacts in repeated passes over the class-major order, deferring any artifact whose
	// dependencies are not all placed yet.  A full pass without progress means a cycle.
	placed := make(map[resource.ID]bool)
	order := make([]resource.ID, 0, len(arts))
	for len(order) < len(arts) {
		progress := false
		for _, a := range arts {
			if placed[a.ID] || !r.ready(a, placed) {
				continue
			}
			placed[a.ID] = true
			order = append(order, a.ID)
			progress = true
		}
		if !progress {
			return nil, &CyclicDependencyError{Cycle: r.findCycle(arts, placed)}
		}
	}

	if logging.V(5) {
		for i, id := range order {
			logging.V(5).Infof("deployment order %d: %v", i+1, id)
		}
	}
	return order, nil
}

// ready returns true if all of the artifact's registered dependencies have been placed.
func (r *Resolver) ready(a *resource.Artifact, placed map[resource.ID]bool) bool {
	for _, dep := range a.Dependencies {
		if r.registry.Has(dep) && !placed[dep] {
			return false
		}
	}
	return true
}

// findCycle reconstructs a minimal dependency loop among the unplaced artifacts.  Every unplaced
// artifact has at least one unplaced dependency (otherwise it would have been placed), so walking
// unplaced dependency edges must eventually revisit a node; the walk from that node onward is a
// genuine cycle.
func (r *Resolver) findCycle(arts []*resource.Artifact, placed map[resource.ID]bool) []resource.ID {
	var start *resource.Artifact
	for _, a := range arts {
		if !placed[a.ID] {
			start = a
			break
		}
	}
	contract.Assertf(start != nil, "no unplaced artifact despite lack of progress")

	seen := make(map[resource.ID]int)
	var path []resource.ID
	cur := start
	for {
		if at, visited := seen[cur.ID]; visited {
			return path[at:]
		}
		seen[cur.ID] = len(path)
		path = append(path, cur.ID)

		var next *resource.Artifact
		for _, dep := range cur.Dependencies {
			if r.registry.Has(dep) && !placed[dep] {
				next = r.registry.Lookup(dep)
				break
			}
		}
		contract.Assertf(next != nil, "unplaced artifact '%v' has no unplaced dependency", cur.ID)
		cur = next
	}
}
