// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Package engine ties the deployment pipeline together: it loads the environment's configuration,
// discovers artifacts, resolves the deployment order, selects what to deploy, executes the plan
// against the platform, and records a checkpoint on full success.
package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/fabdeploy/fabdeploy/pkg/diag"
	"github.com/fabdeploy/fabdeploy/pkg/gitutil"
	"github.com/fabdeploy/fabdeploy/pkg/platform"
	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/resource/changes"
	"github.com/fabdeploy/fabdeploy/pkg/resource/checkpoint"
	"github.com/fabdeploy/fabdeploy/pkg/resource/deploy"
	"github.com/fabdeploy/fabdeploy/pkg/util/contract"
	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
	"github.com/fabdeploy/fabdeploy/pkg/workspace"
)

// Options configures one run.
type Options struct {
	// ConfigDir holds the per-environment configuration files.  Defaults to "config".
	ConfigDir string
	// ArtifactsDir is the repository directory containing the artifacts root.  Defaults to ".".
	ArtifactsDir string
	// DryRun simulates the run without touching the platform.
	DryRun bool
	// Full deploys every artifact, bypassing change detection.
	Full bool
	// Only restricts the run to the named artifacts (by display name or id), bypassing change
	// detection.  Dependencies are not pulled in implicitly; the operator's list is taken as-is.
	Only []string
	// RetryAttempts bounds transient-error retries per remote call.  Zero means the default.
	RetryAttempts int

	// Sink receives diagnostics.  Defaults to the standard sink.
	Sink diag.Sink
	// Client overrides the platform client, for tests.  When nil, an HTTP client is built from
	// the environment's service principal configuration.
	Client platform.Client
	// Checkpoints overrides the checkpoint store, for tests.  When nil, checkpoints live in
	// files under ArtifactsDir.
	Checkpoints checkpoint.Store
}

func (o *Options) applyDefaults() {
	if o.ConfigDir == "" {
		o.ConfigDir = "config"
	}
	if o.ArtifactsDir == "" {
		o.ArtifactsDir = "."
	}
	if o.Sink == nil {
		o.Sink = diag.DefaultSink()
	}
}

// Deploy runs a deployment to the given environment and returns its summary.  A non-nil error
// means the run could not start or was aborted; individual artifact failures are reported in the
// summary, not the error.
func Deploy(ctx context.Context, env string, opts Options) (*deploy.Summary, error) {
	opts.applyDefaults()

	cfg, err := workspace.Load(opts.ConfigDir, env)
	if err != nil {
		return nil, err
	}
	opts.Sink.Infof("deploying to environment '%s' (workspace '%s')", cfg.Environment, cfg.Workspace.Name)
	if opts.DryRun {
		opts.Sink.Infof("dry run: no changes will be made")
	}

	reg := deploy.NewRegistry()
	if err := NewDiscoverer(opts.ArtifactsDir, cfg.ArtifactsRoot, opts.Sink).Discover(reg); err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		opts.Sink.Warningf("no artifacts discovered under %s/%s",
			opts.ArtifactsDir, cfg.ArtifactsRoot)
	}

	resolver := deploy.NewResolver(reg)
	if err := resolver.Validate(); err != nil {
		return nil, err
	}
	ordered, err := resolver.Resolve()
	if err != nil {
		return nil, err
	}
	plan := deploy.NewPlan(ordered)

	repo := gitutil.Open(opts.ArtifactsDir)
	currentRevision := ""
	if !repo.IsUnavailable() {
		if currentRevision, err = repo.CurrentRevision(); err != nil {
			opts.Sink.Warningf("cannot determine current revision: %v", err)
			currentRevision = ""
		}
	}

	checkpoints := opts.Checkpoints
	if checkpoints == nil {
		checkpoints = checkpoint.NewFileStore(
			filepath.Join(opts.ArtifactsDir, checkpoint.DefaultTrackingDir))
	}

	if err := selectArtifacts(plan, reg, checkpoints, repo, cfg, currentRevision, opts); err != nil {
		return nil, err
	}
	if plan.Len() == 0 {
		opts.Sink.Infof("environment '%s' is up to date; nothing to deploy", env)
		return &deploy.Summary{DryRun: opts.DryRun}, nil
	}
	opts.Sink.Infof("deploying %d of %d artifacts", plan.Len(), reg.Len())

	client := opts.Client
	if client == nil {
		if client, err = newClient(cfg); err != nil {
			return nil, err
		}
	}

	executor := deploy.NewExecutor(reg, plan, newLoaders(), cfg.Parameters, client, opts.Sink,
		deploy.Options{DryRun: opts.DryRun, RetryAttempts: opts.RetryAttempts})
	summary, execErr := executor.Execute(ctx)
	printSummary(opts.Sink, summary)
	if execErr != nil {
		return summary, execErr
	}

	// A checkpoint is written only when every selected artifact deployed, so a partial failure
	// keeps the failed artifacts in scope for the next incremental run.  An operator-restricted
	// run never advances the checkpoint: artifacts it excluded may have changed since the last
	// checkpoint, and moving it would drop them from the next incremental run.
	if len(opts.Only) > 0 && !opts.DryRun && summary.Success() && currentRevision != "" {
		opts.Sink.Infof("checkpoint left at its previous revision: --only runs do not cover all changes")
	}
	if !opts.DryRun && len(opts.Only) == 0 && summary.Success() && currentRevision != "" {
		if err := checkpoints.Save(env, checkpoint.Checkpoint{
			Revision: currentRevision,
			Time:     time.Now(),
		}); err != nil {
			opts.Sink.Warningf("deployment succeeded but the checkpoint could not be saved: %v", err)
		} else {
			logging.V(3).Infof("checkpoint for '%s' advanced to %s", env, currentRevision)
		}
	}
	return summary, nil
}

// Preview is a deployment with the apply suppressed.
func Preview(ctx context.Context, env string, opts Options) (*deploy.Summary, error) {
	opts.DryRun = true
	return Deploy(ctx, env, opts)
}

// Validate checks the environment's configuration, the artifact tree, and the dependency graph
// without contacting the platform.
func Validate(env string, opts Options) error {
	opts.applyDefaults()

	cfg, err := workspace.Load(opts.ConfigDir, env)
	if err != nil {
		return err
	}

	reg := deploy.NewRegistry()
	if err := NewDiscoverer(opts.ArtifactsDir, cfg.ArtifactsRoot, opts.Sink).Discover(reg); err != nil {
		return err
	}

	resolver := deploy.NewResolver(reg)
	if err := resolver.Validate(); err != nil {
		return err
	}
	if _, err := resolver.Resolve(); err != nil {
		return err
	}

	// Every artifact's definition must load; for file-backed types that means the source file
	// exists and is readable.
	loaders := newLoaders()
	var failed int
	for _, a := range reg.All() {
		loader, has := loaders[a.Type]
		if !has {
			opts.Sink.Errorf("no definition loader for artifact type '%v'", a.Type)
			failed++
			continue
		}
		if _, err := loader.Load(a); err != nil {
			opts.Sink.Errorf("definition for '%v' is not loadable: %v", a.ID, err)
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("validation failed for %d of %d artifacts", failed, reg.Len())
	}
	opts.Sink.Infof("validated %d artifacts for environment '%s'", reg.Len(), env)
	return nil
}

// selectArtifacts narrows the plan per the run mode: full, operator-named, or incremental.
func selectArtifacts(plan *deploy.Plan, reg *deploy.Registry, checkpoints checkpoint.Store,
	repo *gitutil.Repo, cfg *workspace.Config, currentRevision string, opts Options) error {

	switch {
	case len(opts.Only) > 0:
		ids := make(map[resource.ID]bool)
		for _, name := range opts.Only {
			id, err := resolveName(reg, name)
			if err != nil {
				return err
			}
			ids[id] = true
		}
		plan.Select(ids)
		opts.Sink.Infof("deploying %d operator-selected artifacts", len(ids))

	case opts.Full:
		opts.Sink.Infof("full deployment requested; deploying all artifacts")

	default:
		detector := changes.NewDetector(reg, checkpoints, repo,
			cfg.ArtifactsRoot, opts.ConfigDir, opts.Sink)
		result := detector.Detect(cfg.Environment, currentRevision)
		opts.Sink.Infof("change detection: %s", result.Reason)
		switch result.Mode {
		case changes.ModeNone:
			plan.SelectNone()
		case changes.ModeSubset:
			plan.Select(result.IDs)
		case changes.ModeAll:
			// The plan already selects everything.
		default:
			contract.Failf("unexpected change detection mode '%v'", result.Mode)
		}
	}
	return nil
}

// resolveName maps an operator-supplied artifact name to a registered ID.  Exact IDs are accepted
// as well as display names, as long as the display name is unambiguous.
func resolveName(reg *deploy.Registry, name string) (resource.ID, error) {
	if reg.Has(resource.ID(name)) {
		return resource.ID(name), nil
	}
	var matches []resource.ID
	for _, a := range reg.All() {
		if a.DisplayName == name {
			matches = append(matches, a.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Errorf("no artifact named '%s' was discovered", name)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Errorf("artifact name '%s' is ambiguous (%d matches); use a full id", name, len(matches))
	}
}

func newClient(cfg *workspace.Config) (platform.Client, error) {
	if cfg.ServicePrincipal == nil {
		return nil, errors.Errorf(
			"no service principal configured for environment '%s'", cfg.Environment)
	}
	tokens := platform.NewServicePrincipalTokenSource(*cfg.ServicePrincipal, platform.DefaultScope)
	return platform.NewHTTPClient(platform.DefaultEndpoint, cfg.Workspace.ID, tokens), nil
}

func printSummary(sink diag.Sink, s *deploy.Summary) {
	verb := "deployment"
	if s.DryRun {
		verb = "dry run"
	}
	sink.Infof("%s complete: %d created, %d updated, %d skipped, %d errored",
		verb, s.Created, s.Updated, s.Skipped, s.Errored)
	for _, f := range s.Failures() {
		sink.Infof("  failed [%s]: %v: %v", f.ErrorClass, f.ID, f.Error)
	}
}
