// Copyright 2025, the fabdeploy authors.  All rights reserved.

package resource

import (
	"strings"
)

// ID is a stable identifier for an artifact, unique within one deployment run.  It is derived from
// the artifact's type and name (e.g. `lakehouse:SalesData`) and is never reused for a different
// logical artifact.  It is a purely local construct: the remote platform matches artifacts by
// display name, not by ID.
type ID string

// NewID derives an artifact ID from a type and a name.
func NewID(t Type, name string) ID {
	return ID(strings.ToLower(string(t)) + ":" + name)
}

// Artifact is a single named, typed unit of deployable content.
type Artifact struct {
	ID           ID     // the artifact's unique ID within this run.
	Type         Type   // the kind of artifact; selects the priority class and the loader.
	DisplayName  string // human-facing name; the idempotency key against the remote platform.
	Dependencies []ID   // other artifacts that must be deployed before this one.
	Source       string // opaque locator for the artifact's definition (a file or folder path).
}

// DependsOn returns true if the artifact declares a direct dependency on the given ID.
func (a *Artifact) DependsOn(id ID) bool {
	for _, dep := range a.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// Equal returns true if two artifact records carry an identical definition.  Registration relies on
// this to tell an idempotent re-registration apart from a conflicting one.
func (a *Artifact) Equal(other *Artifact) bool {
	if a.ID != other.ID || a.Type != other.Type ||
		a.DisplayName != other.DisplayName || a.Source != other.Source {
		return false
	}
	if len(a.Dependencies) != len(other.Dependencies) {
		return false
	}
	for i, dep := range a.Dependencies {
		if other.Dependencies[i] != dep {
			return false
		}
	}
	return true
}
