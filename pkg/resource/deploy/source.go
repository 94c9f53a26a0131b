// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"fmt"

	"github.com/fabdeploy/fabdeploy/pkg/resource"
)

// Definition is an artifact's raw definition content.  The core never interprets the payload; it
// only substitutes parameters into it and hands it to the platform client.
type Definition struct {
	Content []byte
}

// DefinitionNotFoundError indicates an artifact's definition could not be located at its source.
type DefinitionNotFoundError struct {
	ID     resource.ID
	Source string
}

func (e *DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("definition not found for artifact '%v' at '%v'", e.ID, e.Source)
}

// Loader fetches the raw definition for an artifact.  Implementations are type-specific and live
// outside the core; the executor only sees this boundary.
type Loader interface {
	Load(a *resource.Artifact) (*Definition, error)
}

// Loaders maps each artifact type to its loader.  A missing entry is an artifact-local error at
// execution time, not a registration-time failure, so a single unsupported type cannot block a run.
type Loaders map[resource.Type]Loader

// LoaderFunc adapts an ordinary function to the Loader interface.
type LoaderFunc func(a *resource.Artifact) (*Definition, error)

func (f LoaderFunc) Load(a *resource.Artifact) (*Definition, error) {
	return f(a)
}
