// Copyright 2025, the fabdeploy authors.  All rights reserved.

package changes

import (
	"bytes"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabdeploy/fabdeploy/pkg/diag"
	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/resource/checkpoint"
	"github.com/fabdeploy/fabdeploy/pkg/resource/deploy"
	"github.com/fabdeploy/fabdeploy/pkg/resource/deploy/deploytest"
)

const (
	oldRev = "aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111"
	newRev = "bbbb2222bbbb2222bbbb2222bbbb2222bbbb2222"
)

type fixture struct {
	reg         *deploy.Registry
	checkpoints checkpoint.Store
	source      *deploytest.RevisionSource
	sink        diag.Sink
	errOut      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reg:         deploy.NewRegistry(),
		checkpoints: checkpoint.NewMemoryStore(),
		source:      &deploytest.RevisionSource{Head: newRev},
		errOut:      &bytes.Buffer{},
	}
	f.sink = diag.TestSink(f.errOut, &bytes.Buffer{})

	lake := &resource.Artifact{
		ID: resource.NewID(resource.TypeLakehouse, "lake"), Type: resource.TypeLakehouse,
		DisplayName: "lake", Source: "wsartifacts/Lakehouses/lake.json",
	}
	view := &resource.Artifact{
		ID: resource.NewID(resource.TypeSQLView, "lake/daily"), Type: resource.TypeSQLView,
		DisplayName: "daily", Dependencies: []resource.ID{lake.ID},
		Source: "wsartifacts/Views/lake/daily.sql",
	}
	nb := &resource.Artifact{
		ID: resource.NewID(resource.TypeNotebook, "ingest"), Type: resource.TypeNotebook,
		DisplayName: "ingest", Source: "wsartifacts/Notebooks/ingest.ipynb",
	}
	for _, a := range []*resource.Artifact{lake, view, nb} {
		require.NoError(t, f.reg.Register(a))
	}
	return f
}

func (f *fixture) detector() *Detector {
	return NewDetector(f.reg, f.checkpoints, f.source, "wsartifacts", "config", f.sink)
}

func (f *fixture) saveCheckpoint(t *testing.T, rev string) {
	t.Helper()
	require.NoError(t, f.checkpoints.Save("dev", checkpoint.Checkpoint{
		Revision: rev, Time: time.Now(),
	}))
}

func TestDetectFirstDeployment(t *testing.T) {
	f := newFixture(t)
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeAll, result.Mode)
	assert.Contains(t, result.Reason, "first deployment")
}

func TestDetectCheckpointUnreadable(t *testing.T) {
	f := newFixture(t)
	f.checkpoints = failingStore{}
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeAll, result.Mode)
	assert.Equal(t, 1, f.sink.Warnings())
}

func TestDetectRevisionHistoryUnavailable(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.Unavailable = true
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeAll, result.Mode)
	assert.Equal(t, 1, f.sink.Warnings())
}

func TestDetectNoNewRevisions(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, newRev)
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeNone, result.Mode)
}

func TestDetectDiffFailure(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.DiffErr = errors.New("shallow clone")
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeAll, result.Mode)
	assert.Equal(t, 1, f.sink.Warnings())
}

func TestDetectSubset(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {
			"wsartifacts/Notebooks/ingest.ipynb",
			"README.md", // unrelated content never selects anything.
		},
	}
	result := f.detector().Detect("dev", newRev)
	require.Equal(t, ModeSubset, result.Mode)
	assert.Equal(t, map[resource.ID]bool{
		resource.NewID(resource.TypeNotebook, "ingest"): true,
	}, result.IDs)
}

func TestDetectConfigChangeForcesFull(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {"config/dev.json"},
	}
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeAll, result.Mode)
	assert.Contains(t, result.Reason, "configuration changed")
}

func TestDetectOtherEnvironmentConfigIgnored(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {"config/prod.json"},
	}
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeNone, result.Mode)
}

func TestDetectCommonConfigForcesFull(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {"config/common.json"},
	}
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeAll, result.Mode)
}

func TestDetectClosureExpansion(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	// Only the lakehouse source changed, but its dependent view is pulled in too.
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {"wsartifacts/Lakehouses/lake.json"},
	}
	result := f.detector().Detect("dev", newRev)
	require.Equal(t, ModeSubset, result.Mode)
	assert.Equal(t, map[resource.ID]bool{
		resource.NewID(resource.TypeLakehouse, "lake"):   true,
		resource.NewID(resource.TypeSQLView, "lake/daily"): true,
	}, result.IDs)
}

func TestDetectViewPathMapping(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {"wsartifacts/Views/lake/daily.sql"},
	}
	result := f.detector().Detect("dev", newRev)
	require.Equal(t, ModeSubset, result.Mode)
	assert.Equal(t, map[resource.ID]bool{
		resource.NewID(resource.TypeSQLView, "lake/daily"): true,
	}, result.IDs)
}

func TestDetectUnregisteredPathsIgnored(t *testing.T) {
	f := newFixture(t)
	f.saveCheckpoint(t, oldRev)
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {"wsartifacts/Notebooks/retired.ipynb"},
	}
	result := f.detector().Detect("dev", newRev)
	assert.Equal(t, ModeNone, result.Mode)
}

func TestDetectGitFolderNotebookPath(t *testing.T) {
	f := newFixture(t)
	gitNB := &resource.Artifact{
		ID: resource.NewID(resource.TypeNotebook, "transform"), Type: resource.TypeNotebook,
		DisplayName: "transform",
		Source:      "wsartifacts/Notebooks/transform.Notebook/notebook-content.py",
	}
	require.NoError(t, f.reg.Register(gitNB))
	f.saveCheckpoint(t, oldRev)
	f.source.Changes = map[string][]string{
		oldRev + ".." + newRev: {"wsartifacts/Notebooks/transform.Notebook/notebook-content.py"},
	}
	result := f.detector().Detect("dev", newRev)
	require.Equal(t, ModeSubset, result.Mode)
	assert.True(t, result.IDs[gitNB.ID])
}

type failingStore struct{}

func (failingStore) Load(string) (*checkpoint.Checkpoint, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Save(string, checkpoint.Checkpoint) error {
	return errors.New("disk on fire")
}
