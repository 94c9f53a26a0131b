// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Package gitutil adapts a local git repository to the engine's revision-source boundary.
package gitutil

import (
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// Repo wraps a go-git repository.  A Repo with no underlying repository is valid: it reports
// itself unavailable, which the change detector treats as "deploy everything".
type Repo struct {
	repo *git.Repository
}

// Open locates the repository containing path, searching parent directories the way the git CLI
// does.  Open never fails: when no repository is found, the returned Repo is unavailable.
func Open(path string) *Repo {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logging.V(3).Infof("no git repository at or above %s: %v", path, err)
		return &Repo{}
	}
	return &Repo{repo: repo}
}

// IsUnavailable reports whether revision history cannot be consulted.
func (r *Repo) IsUnavailable() bool {
	return r.repo == nil
}

// CurrentRevision returns the hash of HEAD.
func (r *Repo) CurrentRevision() (string, error) {
	if r.repo == nil {
		return "", errors.New("no git repository available")
	}
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "resolving HEAD")
	}
	return head.Hash().String(), nil
}

// Diff lists the paths that changed between two revisions, relative to the repository root.  Both
// sides of a rename are reported, so callers see every artifact a change could have touched.
func (r *Repo) Diff(from, to string) ([]string, error) {
	if r.repo == nil {
		return nil, errors.New("no git repository available")
	}

	fromTree, err := r.treeFor(from)
	if err != nil {
		return nil, err
	}
	toTree, err := r.treeFor(to)
	if err != nil {
		return nil, err
	}

	diff, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, errors.Wrapf(err, "diffing %s..%s", from, to)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, change := range diff {
		for _, name := range []string{change.From.Name, change.To.Name} {
			if name != "" && !seen[name] {
				seen[name] = true
				paths = append(paths, name)
			}
		}
	}
	return paths, nil
}

func (r *Repo) treeFor(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.Wrapf(err, "resolving revision %q", rev)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.Wrapf(err, "reading commit %s", hash)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrapf(err, "reading tree for %s", hash)
	}
	return tree, nil
}
