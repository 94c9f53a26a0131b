// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Package changes decides which artifacts need redeploying by diffing the source tree between the
// environment's checkpoint revision and the current revision.  It errs on the side of deploying
// too much: whenever a sound subset cannot be computed, the answer is a full deployment, never a
// failed run and never a silent skip.
package changes

import (
	"strings"

	"github.com/fabdeploy/fabdeploy/pkg/diag"
	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/resource/checkpoint"
	"github.com/fabdeploy/fabdeploy/pkg/resource/deploy"
	"github.com/fabdeploy/fabdeploy/pkg/util/contract"
	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// Mode is the overall shape of a detection outcome.
type Mode string

const (
	// ModeAll means every registered artifact should deploy.
	ModeAll Mode = "all"
	// ModeNone means nothing changed; deploying nothing is a successful outcome, not a failure.
	ModeNone Mode = "none"
	// ModeSubset means only the artifacts in IDs should deploy.
	ModeSubset Mode = "subset"
)

// Result is the outcome of change detection.
type Result struct {
	Mode   Mode
	IDs    map[resource.ID]bool // populated only for ModeSubset.
	Reason string               // human-readable explanation for the summary and logs.
}

// RevisionSource is the revision-control handle the detector consumes.  It is satisfied by
// gitutil.Repo and by test stubs.
type RevisionSource interface {
	// CurrentRevision returns the revision id of the working tree's head.
	CurrentRevision() (string, error)
	// Diff lists the paths that changed between two revisions, relative to the repository root.
	Diff(from, to string) ([]string, error)
	// IsUnavailable reports whether revision history cannot be consulted at all.
	IsUnavailable() bool
}

// closureRules names the artifact types that derive from another type: when an artifact of the key
// type changes, every registered artifact of the value type that depends on it is redeployed too,
// even though its own source did not change.
var closureRules = map[resource.Type]resource.Type{
	resource.TypeLakehouse: resource.TypeSQLView,
}

// Detector computes the changed-artifact subset for one environment.
type Detector struct {
	registry    *deploy.Registry
	checkpoints checkpoint.Store
	source      RevisionSource
	root        string // the artifacts root folder, e.g. "wsartifacts".
	configDir   string // the environment configuration folder, e.g. "config".
	sink        diag.Sink
}

// NewDetector creates a detector over the given registry and collaborators.
func NewDetector(registry *deploy.Registry, checkpoints checkpoint.Store, source RevisionSource,
	root, configDir string, sink diag.Sink) *Detector {

	contract.Require(registry != nil, "registry")
	contract.Require(checkpoints != nil, "checkpoints")
	contract.Require(source != nil, "source")
	contract.Require(sink != nil, "sink")
	return &Detector{
		registry:    registry,
		checkpoints: checkpoints,
		source:      source,
		root:        root,
		configDir:   configDir,
		sink:        sink,
	}
}

// Detect computes the set of artifacts that changed since the environment's checkpoint.  It never
// fails for "no changes" or "no checkpoint"; those are normal outcomes.
func (d *Detector) Detect(env, currentRevision string) *Result {
	cp, err := d.checkpoints.Load(env)
	if err != nil {
		d.sink.Warningf("cannot read checkpoint for '%s' (%v); deploying all artifacts", env, err)
		return &Result{Mode: ModeAll, Reason: "checkpoint unreadable"}
	}
	if cp == nil {
		return &Result{Mode: ModeAll, Reason: "first deployment to this environment"}
	}

	if d.source.IsUnavailable() {
		d.sink.Warningf("revision history unavailable; deploying all artifacts")
		return &Result{Mode: ModeAll, Reason: "revision history unavailable"}
	}

	if cp.Revision == currentRevision {
		return &Result{Mode: ModeNone, Reason: "no new revisions since last deployment"}
	}

	paths, err := d.source.Diff(cp.Revision, currentRevision)
	if err != nil {
		d.sink.Warningf("cannot diff %s..%s (%v); deploying all artifacts",
			shortRev(cp.Revision), shortRev(currentRevision), err)
		return &Result{Mode: ModeAll, Reason: "diff unavailable"}
	}

	// Configuration changes can alter the substituted content of any artifact, so a partial
	// detection would be unsound.
	for _, p := range paths {
		if d.isConfigPath(p, env) {
			return &Result{Mode: ModeAll, Reason: "environment configuration changed: " + p}
		}
	}

	ids := make(map[resource.ID]bool)
	for _, p := range paths {
		if id, ok := d.pathToID(p); ok && d.registry.Has(id) {
			ids[id] = true
			logging.V(3).Infof("change detected: %s -> %v", p, id)
		}
	}
	d.expandClosure(ids)

	if len(ids) == 0 {
		return &Result{Mode: ModeNone, Reason: "no artifact sources changed"}
	}
	return &Result{
		Mode:   ModeSubset,
		IDs:    ids,
		Reason: "changed since " + shortRev(cp.Revision),
	}
}

// isConfigPath reports whether a changed path is part of the environment's configuration source.
func (d *Detector) isConfigPath(path, env string) bool {
	for _, cf := range []string{d.configDir + "/" + env + ".json", d.configDir + "/common.json"} {
		if path == cf || strings.HasSuffix(path, "/"+cf) {
			return true
		}
	}
	return false
}

// pathToID maps a changed path to the artifact it belongs to.  A path belongs to exactly one
// artifact, or to zero if it is unrelated content.
func (d *Detector) pathToID(path string) (resource.ID, bool) {
	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != d.root {
		return "", false
	}
	t, ok := resource.TypeForFolder(parts[1])
	if !ok {
		return "", false
	}

	if t == resource.TypeSQLView {
		// Views live at <root>/Views/<lakehouse>/<view>.sql.
		if len(parts) < 4 || !strings.HasSuffix(parts[len(parts)-1], ".sql") {
			return "", false
		}
		view := strings.TrimSuffix(parts[len(parts)-1], ".sql")
		return resource.NewID(t, parts[2]+"/"+view), true
	}

	entry := parts[2]
	switch {
	case strings.HasSuffix(entry, "."+string(t)):
		// Git-folder format: <Name>.<Type>/...
		return resource.NewID(t, strings.TrimSuffix(entry, "."+string(t))), true
	case strings.HasSuffix(entry, ".json"):
		return resource.NewID(t, strings.TrimSuffix(entry, ".json")), true
	case strings.HasSuffix(entry, ".ipynb"):
		return resource.NewID(t, strings.TrimSuffix(entry, ".ipynb")), true
	default:
		// Legacy folder-based artifact.
		return resource.NewID(t, entry), true
	}
}

// expandClosure adds artifacts whose correctness depends on a changed artifact even though their
// own source did not change.
func (d *Detector) expandClosure(ids map[resource.ID]bool) {
	for changed := range ids {
		a := d.registry.Lookup(changed)
		if a == nil {
			continue
		}
		depType, has := closureRules[a.Type]
		if !has {
			continue
		}
		for _, candidate := range d.registry.All() {
			if candidate.Type == depType && candidate.DependsOn(changed) && !ids[candidate.ID] {
				ids[candidate.ID] = true
				d.sink.Infof("including %v: depends on changed %v", candidate.ID, changed)
			}
		}
	}
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
