// Copyright 2025, the fabdeploy authors.  All rights reserved.

package gitutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	dir  string
	repo *git.Repository
}

func initRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &testRepo{dir: dir, repo: repo}
}

func (tr *testRepo) commit(t *testing.T, files map[string]string) string {
	t.Helper()
	wt, err := tr.repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		path := filepath.Join(tr.dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}
	hash, err := wt.Commit("checkpoint", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestOpenWithoutRepository(t *testing.T) {
	r := Open(t.TempDir())
	assert.True(t, r.IsUnavailable())
	_, err := r.CurrentRevision()
	assert.Error(t, err)
	_, err = r.Diff("a", "b")
	assert.Error(t, err)
}

func TestCurrentRevision(t *testing.T) {
	tr := initRepo(t)
	want := tr.commit(t, map[string]string{"a.txt": "one"})

	r := Open(tr.dir)
	require.False(t, r.IsUnavailable())
	got, err := r.CurrentRevision()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenDetectsParentRepository(t *testing.T) {
	tr := initRepo(t)
	tr.commit(t, map[string]string{"sub/dir/a.txt": "one"})

	r := Open(filepath.Join(tr.dir, "sub", "dir"))
	assert.False(t, r.IsUnavailable())
}

func TestDiff(t *testing.T) {
	tr := initRepo(t)
	first := tr.commit(t, map[string]string{
		"wsartifacts/Notebooks/ingest.ipynb": "v1",
		"wsartifacts/Lakehouses/lake.json":   "{}",
	})
	second := tr.commit(t, map[string]string{
		"wsartifacts/Notebooks/ingest.ipynb": "v2",
		"wsartifacts/Notebooks/new.ipynb":    "v1",
	})

	r := Open(tr.dir)
	paths, err := r.Diff(first, second)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"wsartifacts/Notebooks/ingest.ipynb",
		"wsartifacts/Notebooks/new.ipynb",
	}, paths)
}

func TestDiffEmpty(t *testing.T) {
	tr := initRepo(t)
	rev := tr.commit(t, map[string]string{"a.txt": "one"})

	r := Open(tr.dir)
	paths, err := r.Diff(rev, rev)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDiffUnknownRevision(t *testing.T) {
	tr := initRepo(t)
	rev := tr.commit(t, map[string]string{"a.txt": "one"})

	r := Open(tr.dir)
	_, err := r.Diff(rev, "0000000000000000000000000000000000000000")
	assert.Error(t, err)
}
