// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"context"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/fabdeploy/fabdeploy/pkg/diag"
	"github.com/fabdeploy/fabdeploy/pkg/platform"
	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/util/contract"
	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
	"github.com/fabdeploy/fabdeploy/pkg/util/retry"
)

var (
	// ErrCanceled is returned when the operator cancels a run.  Cancellation takes effect between
	// artifacts, never partway through a create or update call, so no artifact is left half-written.
	ErrCanceled = errors.New("deployment canceled")
)

// Options tunes a single execution.
type Options struct {
	// DryRun simulates the run: every step through parameterization and the existence check runs
	// normally, and the create/update call is replaced with a log-only simulation.  Decisions are
	// identical to a real run.
	DryRun bool
	// RetryAttempts bounds transient-error retries per remote call.  Zero means the default.
	RetryAttempts int
	// RetryDelay is the initial backoff delay.  Zero means the default.
	RetryDelay time.Duration
	// ImmutableTypes overrides the default set of skip-on-existing artifact types.
	ImmutableTypes map[resource.Type]bool
}

const defaultRetryAttempts = 3

// Executor walks a plan in order and drives each selected artifact through the per-artifact state
// machine: load, parameterize, existence check, then create, update or skip.  Failures are
// artifact-local unless they are authentication failures, which abort the run, since retrying with
// the same credentials cannot succeed.
type Executor struct {
	registry *Registry
	plan     *Plan
	loaders  Loaders
	params   map[string]string
	client   platform.Client
	sink     diag.Sink
	opts     Options
}

// NewExecutor creates an executor for one run.
func NewExecutor(registry *Registry, plan *Plan, loaders Loaders, params map[string]string,
	client platform.Client, sink diag.Sink, opts Options) *Executor {

	contract.Require(registry != nil, "registry")
	contract.Require(plan != nil, "plan")
	contract.Require(client != nil, "client")
	contract.Require(sink != nil, "sink")

	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultRetryAttempts
	}
	if opts.ImmutableTypes == nil {
		opts.ImmutableTypes = resource.DefaultImmutableTypes()
	}
	return &Executor{
		registry: registry,
		plan:     plan,
		loaders:  loaders,
		params:   params,
		client:   client,
		sink:     sink,
		opts:     opts,
	}
}

// Execute runs the plan to completion.  The summary is always returned, even alongside an error;
// a non-nil error means the run was aborted (cancellation or a fatal authentication failure), not
// that individual artifacts failed.
func (ex *Executor) Execute(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewV4().String(), DryRun: ex.opts.DryRun}

	for _, id := range ex.plan.Selected() {
		select {
		case <-ctx.Done():
			return summary, ErrCanceled
		default:
		}

		a := ex.registry.Lookup(id)
		contract.Assertf(a != nil, "plan selected unregistered artifact '%v'", id)

		res, fatal := ex.deployOne(ctx, a)
		summary.Results = append(summary.Results, res)
		switch {
		case res.Status == StatusErrored:
			summary.Errored++
			ex.sink.Errorf("failed to deploy %s '%s': %v", a.Type, a.DisplayName, res.Error)
		case res.Op == OpCreate:
			summary.Created++
		case res.Op == OpUpdate:
			summary.Updated++
		case res.Op == OpSkip:
			summary.Skipped++
		}
		if fatal != nil {
			return summary, fatal
		}
	}
	return summary, nil
}

// deployOne runs the state machine for a single artifact.  The second return value is non-nil only
// for failures that must abort the whole run.
func (ex *Executor) deployOne(ctx context.Context, a *resource.Artifact) (StepResult, error) {
	res := StepResult{ID: a.ID, Status: StatusPending}

	// Load the definition through the type's loader.  A malformed or missing definition is an
	// artifact-local failure; the run continues with the next artifact in order.
	loader, has := ex.loaders[a.Type]
	if !has {
		res.Status = StatusErrored
		res.ErrorClass = ErrorClassDefinition
		res.Error = errors.Errorf("no definition loader for artifact type '%v'", a.Type)
		return res, nil
	}
	def, err := loader.Load(a)
	if err != nil {
		res.Status = StatusErrored
		res.ErrorClass = ErrorClassDefinition
		res.Error = errors.Wrapf(err, "loading definition for '%v'", a.ID)
		return res, nil
	}

	// Substitute environment parameters.  Unresolved placeholders warn rather than fail; the
	// platform is left to reject payloads that are truly invalid.
	content := []byte(SubstituteParameters(string(def.Content), ex.params))
	for _, name := range Unresolved(string(content)) {
		ex.sink.Warningf("artifact '%v' has unresolved parameter '{{%s}}'", a.ID, name)
	}
	res.Status = StatusParameterized

	// Existence check by display name: this is the idempotency key against the platform.
	existsOut, err := ex.withRetry(ctx, &res, func(callCtx context.Context) (interface{}, error) {
		remoteID, found, err := ex.client.Exists(callCtx, a.Type, a.DisplayName)
		return existence{remoteID, found}, err
	})
	if err != nil {
		return ex.remoteFailure(&res, errors.Wrapf(err, "checking existence of '%v'", a.ID))
	}
	exists := existsOut.(existence)

	// Decide the operation.  This decision is shared verbatim between dry runs and real runs.
	switch {
	case exists.found && ex.opts.ImmutableTypes[a.Type]:
		res.Op = OpSkip
	case exists.found:
		res.Op = OpUpdate
		res.RemoteID = exists.remoteID
	default:
		res.Op = OpCreate
	}

	if ex.opts.DryRun {
		ex.sink.Infof("[dry run] would %s %s '%s'", res.Op, a.Type, a.DisplayName)
		res.Status = StatusDeployed
		return res, nil
	}

	switch res.Op {
	case OpSkip:
		ex.sink.Infof("%s '%s' already exists and is immutable; skipping", a.Type, a.DisplayName)
	case OpUpdate:
		_, err = ex.withRetry(ctx, &res, func(callCtx context.Context) (interface{}, error) {
			return nil, ex.client.Update(callCtx, exists.remoteID, a.Type, content)
		})
		if err != nil {
			return ex.remoteFailure(&res, errors.Wrapf(err, "updating '%v'", a.ID))
		}
		ex.sink.Infof("updated %s '%s' (%s)", a.Type, a.DisplayName, exists.remoteID)
	case OpCreate:
		out, cerr := ex.withRetry(ctx, &res, func(callCtx context.Context) (interface{}, error) {
			return ex.client.Create(callCtx, a.Type, a.DisplayName, content)
		})
		if cerr != nil {
			return ex.remoteFailure(&res, errors.Wrapf(cerr, "creating '%v'", a.ID))
		}
		res.RemoteID = out.(string)
		ex.sink.Infof("created %s '%s' (%s)", a.Type, a.DisplayName, res.RemoteID)
	}

	res.Status = StatusDeployed
	return res, nil
}

type existence struct {
	remoteID string
	found    bool
}

// withRetry invokes a remote call, retrying transient failures a bounded number of times with
// backoff.  Authentication failures and payload rejections are never retried.
func (ex *Executor) withRetry(ctx context.Context, res *StepResult,
	call func(ctx context.Context) (interface{}, error)) (interface{}, error) {

	var out interface{}
	var callErr error
	delay := ex.opts.RetryDelay
	acceptor := retry.Acceptor{
		Accept: func(try int, nextRetryTime time.Duration) (bool, interface{}, error) {
			out, callErr = call(ctx)
			if callErr == nil {
				return true, out, nil
			}
			if platform.IsTransient(callErr) && try < ex.opts.RetryAttempts {
				res.Retries++
				wait := nextRetryTime
				if hint := platform.RetryAfter(callErr); hint > wait {
					wait = hint
				}
				logging.V(3).Infof("transient failure (attempt %d of %d), retrying in %v: %v",
					try+1, ex.opts.RetryAttempts+1, wait, callErr)
				// The retry loop sleeps nextRetryTime on its own; a longer Retry-After hint
				// from the platform is waited out here.
				if extra := wait - nextRetryTime; extra > 0 {
					select {
					case <-time.After(extra):
					case <-ctx.Done():
						return false, nil, nil
					}
				}
				return false, nil, nil
			}
			return false, nil, callErr
		},
	}
	if delay > 0 {
		acceptor.Delay = &delay
	}
	ok, _, err := retry.Until(ctx, acceptor)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The context expired mid-backoff; surface the last call error.
		if callErr != nil {
			return nil, callErr
		}
		return nil, ctx.Err()
	}
	return out, nil
}

// remoteFailure classifies a remote error, records it on the result, and decides whether the run
// must abort.
func (ex *Executor) remoteFailure(res *StepResult, err error) (StepResult, error) {
	res.Status = StatusErrored
	res.Error = err
	if platform.IsAuth(err) {
		// No per-artifact retry can fix credentials; the run stops here.
		return *res, err
	}
	if platform.IsTransient(err) {
		res.ErrorClass = ErrorClassTransient
	} else {
		res.ErrorClass = ErrorClassPlatform
	}
	return *res, nil
}
