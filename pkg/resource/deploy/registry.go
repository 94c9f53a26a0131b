// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"fmt"

	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/util/contract"
)

// Registry is an in-memory catalog of the artifacts known to one deployment run.  Insertion order
// is preserved so that downstream ordering decisions are deterministic.  A Registry has no side
// effects beyond its in-memory state and lives for exactly one run.
type Registry struct {
	artifacts []*resource.Artifact
	index     map[resource.ID]*resource.Artifact
}

// DuplicateArtifactError indicates that an ID was registered twice with conflicting definitions.
type DuplicateArtifactError struct {
	ID resource.ID
}

func (e *DuplicateArtifactError) Error() string {
	return fmt.Sprintf("artifact '%v' registered twice with conflicting definitions", e.ID)
}

// NewRegistry creates an empty artifact registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[resource.ID]*resource.Artifact)}
}

// Register adds an artifact to the registry.  Re-registering an identical definition is a no-op, so
// discovery can safely run more than once; re-registering a conflicting definition under the same
// ID is a configuration error.
func (r *Registry) Register(a *resource.Artifact) error {
	contract.Require(a != nil, "a")
	contract.Requiref(a.ID != "", "a", "artifact must carry an ID")

	if existing, has := r.index[a.ID]; has {
		if existing.Equal(a) {
			return nil
		}
		return &DuplicateArtifactError{ID: a.ID}
	}

	r.artifacts = append(r.artifacts, a)
	r.index[a.ID] = a
	return nil
}

// Lookup fetches a registered artifact by ID, returning nil if it isn't registered.
func (r *Registry) Lookup(id resource.ID) *resource.Artifact {
	return r.index[id]
}

// Has returns true if the given ID is registered.
func (r *Registry) Has(id resource.ID) bool {
	_, has := r.index[id]
	return has
}

// All returns the registered artifacts in insertion order.  The slice is a copy; callers may
// reorder it freely.
func (r *Registry) All() []*resource.Artifact {
	all := make([]*resource.Artifact, len(r.artifacts))
	copy(all, r.artifacts)
	return all
}

// Len returns the number of registered artifacts.
func (r *Registry) Len() int {
	return len(r.artifacts)
}
