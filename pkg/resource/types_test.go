// Copyright 2025, the fabdeploy authors.  All rights reserved.

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityClassOrdering(t *testing.T) {
	// Spot-check the platform ordering constraints the classes encode.
	assert.Less(t, TypeVariableLibrary.PriorityClass(), TypeLakehouse.PriorityClass())
	assert.Less(t, TypeLakehouse.PriorityClass(), TypeSQLView.PriorityClass())
	assert.Less(t, TypeSQLView.PriorityClass(), TypeNotebook.PriorityClass())
	assert.Less(t, TypeNotebook.PriorityClass(), TypeDataPipeline.PriorityClass())
}

func TestPriorityClassUnknownType(t *testing.T) {
	unknown := Type("Warehouse")
	for known := range priorityClasses {
		assert.Greater(t, unknown.PriorityClass(), known.PriorityClass())
	}
}

func TestNewID(t *testing.T) {
	assert.Equal(t, ID("lakehouse:SalesData"), NewID(TypeLakehouse, "SalesData"))
	assert.Equal(t, ID("sqlview:lake/daily"), NewID(TypeSQLView, "lake/daily"))
}

func TestFolderRoundTrip(t *testing.T) {
	for typ, folder := range artifactFolders {
		name, has := FolderName(typ)
		assert.True(t, has)
		assert.Equal(t, folder, name)

		back, has := TypeForFolder(folder)
		assert.True(t, has)
		assert.Equal(t, typ, back)
	}

	_, has := FolderName(TypeShortcut)
	assert.False(t, has)
	_, has = TypeForFolder("Nosuch")
	assert.False(t, has)
}

func TestArtifactEqual(t *testing.T) {
	a := &Artifact{ID: "notebook:a", Type: TypeNotebook, DisplayName: "a",
		Dependencies: []ID{"lakehouse:l"}, Source: "Notebooks/a.ipynb"}
	same := &Artifact{ID: "notebook:a", Type: TypeNotebook, DisplayName: "a",
		Dependencies: []ID{"lakehouse:l"}, Source: "Notebooks/a.ipynb"}
	assert.True(t, a.Equal(same))

	diff := *same
	diff.Dependencies = []ID{"lakehouse:other"}
	assert.False(t, a.Equal(&diff))
}
