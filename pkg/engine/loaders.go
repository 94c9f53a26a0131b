// Copyright 2025, the fabdeploy authors.  All rights reserved.

package engine

import (
	"os"

	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/resource/deploy"
)

// newLoaders builds the per-type definition loaders.  Most types ship the file at the artifact's
// source locator verbatim.  Container types (lakehouses, environments) carry no definition payload
// at all: the platform creates them from name alone, and their local JSON only feeds discovery.
func newLoaders() deploy.Loaders {
	loaders := deploy.Loaders{}
	for _, t := range jsonFolderTypes {
		loaders[t] = fileLoader{}
	}
	loaders[resource.TypeNotebook] = fileLoader{}
	loaders[resource.TypeSQLView] = fileLoader{}
	loaders[resource.TypeLakehouse] = emptyLoader{}
	loaders[resource.TypeEnvironment] = emptyLoader{}
	return loaders
}

type fileLoader struct{}

func (fileLoader) Load(a *resource.Artifact) (*deploy.Definition, error) {
	content, err := os.ReadFile(a.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &deploy.DefinitionNotFoundError{ID: a.ID, Source: a.Source}
		}
		return nil, err
	}
	return &deploy.Definition{Content: content}, nil
}

type emptyLoader struct{}

func (emptyLoader) Load(*resource.Artifact) (*deploy.Definition, error) {
	return &deploy.Definition{}, nil
}
