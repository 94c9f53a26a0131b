// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Package checkpoint persists, per environment, the revision that was last successfully and fully
// deployed.  The checkpoint is read at run start, written exactly once at run end, and only on a
// zero-failure outcome: a run with any errored artifact must not mark the environment up to date,
// or change detection would stop tracking the erroring artifact's files.
package checkpoint

import (
	"time"
)

// Checkpoint records one environment's last fully deployed revision.  The timestamp is advisory,
// for operator visibility only.
type Checkpoint struct {
	Revision string
	Time     time.Time
}

// Store reads and writes checkpoints keyed by environment name.
type Store interface {
	// Load returns the environment's checkpoint, or nil if none exists yet (first deployment).
	Load(env string) (*Checkpoint, error)
	// Save overwrites the environment's checkpoint.
	Save(env string, c Checkpoint) error
}
