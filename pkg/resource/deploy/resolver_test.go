// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabdeploy/fabdeploy/pkg/resource"
)

func artifact(t resource.Type, name string, deps ...resource.ID) *resource.Artifact {
	return &resource.Artifact{
		ID:           resource.NewID(t, name),
		Type:         t,
		DisplayName:  name,
		Dependencies: deps,
	}
}

func mustRegister(t *testing.T, reg *Registry, arts ...*resource.Artifact) {
	t.Helper()
	for _, a := range arts {
		require.NoError(t, reg.Register(a))
	}
}

func indexOf(order []resource.ID, id resource.ID) int {
	for i, o := range order {
		if o == id {
			return i
		}
	}
	return -1
}

func assertBefore(t *testing.T, order []resource.ID, first, second resource.ID) {
	t.Helper()
	fi, si := indexOf(order, first), indexOf(order, second)
	require.GreaterOrEqual(t, fi, 0, "%v missing from order", first)
	require.GreaterOrEqual(t, si, 0, "%v missing from order", second)
	assert.Less(t, fi, si, "%v should come before %v", first, second)
}

func TestResolveClassMajorOrder(t *testing.T) {
	reg := NewRegistry()
	// Registered deliberately out of class order.
	mustRegister(t, reg,
		artifact(resource.TypeDataPipeline, "nightly"),
		artifact(resource.TypeNotebook, "ingest"),
		artifact(resource.TypeLakehouse, "lake"),
		artifact(resource.TypeVariableLibrary, "vars"),
	)

	order, err := NewResolver(reg).Resolve()
	require.NoError(t, err)
	require.Len(t, order, 4)

	assert.Equal(t, resource.NewID(resource.TypeVariableLibrary, "vars"), order[0])
	assert.Equal(t, resource.NewID(resource.TypeLakehouse, "lake"), order[1])
	assert.Equal(t, resource.NewID(resource.TypeNotebook, "ingest"), order[2])
	assert.Equal(t, resource.NewID(resource.TypeDataPipeline, "nightly"), order[3])
}

func TestResolveStableWithinClass(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg,
		artifact(resource.TypeNotebook, "zeta"),
		artifact(resource.TypeNotebook, "alpha"),
		artifact(resource.TypeNotebook, "mid"),
	)

	order, err := NewResolver(reg).Resolve()
	require.NoError(t, err)
	// Insertion order is the tie-break, not name order.
	assert.Equal(t, []resource.ID{
		resource.NewID(resource.TypeNotebook, "zeta"),
		resource.NewID(resource.TypeNotebook, "alpha"),
		resource.NewID(resource.TypeNotebook, "mid"),
	}, order)
}

func TestResolveExplicitDependenciesWithinClass(t *testing.T) {
	reg := NewRegistry()
	base := artifact(resource.TypeNotebook, "base")
	derived := artifact(resource.TypeNotebook, "derived", base.ID)
	// derived registered first; the dependency edge must still win.
	mustRegister(t, reg, derived, base)

	order, err := NewResolver(reg).Resolve()
	require.NoError(t, err)
	assertBefore(t, order, base.ID, derived.ID)
}

func TestResolveViewChains(t *testing.T) {
	reg := NewRegistry()
	lake := artifact(resource.TypeLakehouse, "lake")
	vBase := artifact(resource.TypeSQLView, "lake/base", lake.ID)
	vMid := artifact(resource.TypeSQLView, "lake/mid", lake.ID, vBase.ID)
	vTop := artifact(resource.TypeSQLView, "lake/top", lake.ID, vMid.ID)
	mustRegister(t, reg, vTop, vMid, vBase, lake)

	order, err := NewResolver(reg).Resolve()
	require.NoError(t, err)
	assertBefore(t, order, lake.ID, vBase.ID)
	assertBefore(t, order, vBase.ID, vMid.ID)
	assertBefore(t, order, vMid.ID, vTop.ID)
}

func TestResolveDeterministic(t *testing.T) {
	reg := NewRegistry()
	lake := artifact(resource.TypeLakehouse, "lake")
	mustRegister(t, reg,
		lake,
		artifact(resource.TypeSQLView, "lake/a", lake.ID),
		artifact(resource.TypeSQLView, "lake/b", lake.ID),
		artifact(resource.TypeNotebook, "nb"),
	)

	r := NewResolver(reg)
	first, err := r.Resolve()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Resolve()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveCycle(t *testing.T) {
	reg := NewRegistry()
	a := artifact(resource.TypeNotebook, "a", resource.NewID(resource.TypeNotebook, "b"))
	b := artifact(resource.TypeNotebook, "b", resource.NewID(resource.TypeNotebook, "c"))
	c := artifact(resource.TypeNotebook, "c", resource.NewID(resource.TypeNotebook, "a"))
	mustRegister(t, reg, a, b, c)

	_, err := NewResolver(reg).Resolve()
	require.Error(t, err)
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Len(t, cyc.Cycle, 3)

	// The reported cycle must be a genuine loop over real edges.
	for i, id := range cyc.Cycle {
		next := cyc.Cycle[(i+1)%len(cyc.Cycle)]
		assert.True(t, reg.Lookup(id).DependsOn(next),
			"%v should depend on %v", id, next)
	}
}

func TestResolveSelfCycle(t *testing.T) {
	reg := NewRegistry()
	self := artifact(resource.TypeNotebook, "self")
	self.Dependencies = []resource.ID{self.ID}
	mustRegister(t, reg, self)

	_, err := NewResolver(reg).Resolve()
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []resource.ID{self.ID}, cyc.Cycle)
}

func TestValidateUnknownDependencies(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg,
		artifact(resource.TypeNotebook, "a", resource.ID("lakehouse:ghost")),
		artifact(resource.TypeNotebook, "b", resource.ID("notebook:phantom")),
	)

	err := NewResolver(reg).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lakehouse:ghost")
	assert.Contains(t, err.Error(), "notebook:phantom")
}

func TestValidateClean(t *testing.T) {
	reg := NewRegistry()
	lake := artifact(resource.TypeLakehouse, "lake")
	mustRegister(t, reg, lake, artifact(resource.TypeSQLView, "lake/v", lake.ID))
	assert.NoError(t, NewResolver(reg).Validate())
}

func TestResolveEmptyRegistry(t *testing.T) {
	order, err := NewResolver(NewRegistry()).Resolve()
	require.NoError(t, err)
	assert.Empty(t, order)
}
