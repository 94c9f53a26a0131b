// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"github.com/fabdeploy/fabdeploy/pkg/resource"
)

// StepOp is the operation the executor decided on for one artifact.  Dry runs compute the same ops
// as real runs; only the apply is suppressed.
type StepOp string

const (
	OpCreate StepOp = "create" // the artifact does not exist remotely and will be created.
	OpUpdate StepOp = "update" // the artifact exists and its definition will be replaced.
	OpSkip   StepOp = "skip"   // the artifact exists and its type is immutable; left untouched.
)

// Status tracks an artifact through the per-artifact state machine.
type Status string

const (
	StatusPending       Status = "pending"       // not reached yet.
	StatusParameterized Status = "parameterized" // definition loaded and parameters substituted.
	StatusDeployed      Status = "deployed"      // the decided operation completed (or was simulated).
	StatusErrored       Status = "errored"       // a step failed; the run continued without it.
)

// ErrorClass buckets artifact failures for the end-of-run summary, so an operator knows whether a
// retry with the same inputs can possibly help.
type ErrorClass string

const (
	ErrorClassNone       ErrorClass = ""
	ErrorClassDefinition ErrorClass = "definition" // the local definition could not be loaded or parsed.
	ErrorClassTransient  ErrorClass = "transient"  // remote failures that exhausted the retry budget.
	ErrorClassPlatform   ErrorClass = "platform"   // the platform rejected the payload.
)

// StepResult is the outcome for a single artifact.
type StepResult struct {
	ID         resource.ID
	Op         StepOp
	Status     Status
	Error      error
	ErrorClass ErrorClass
	RemoteID   string // the platform's ID for the artifact, when known.
	Retries    int    // transient retries consumed before the final outcome.
}

// Summary aggregates the outcome of a whole run.  The executor continues through the full plan
// regardless of individual failures, so the summary is the single source of truth about what
// happened.
type Summary struct {
	RunID    string // unique identifier for this run.
	DryRun   bool
	Created  int
	Updated  int
	Skipped  int
	Errored  int
	Results  []StepResult
}

// Failures returns the results for every artifact that did not reach StatusDeployed.
func (s *Summary) Failures() []StepResult {
	var out []StepResult
	for _, r := range s.Results {
		if r.Status != StatusDeployed {
			out = append(out, r)
		}
	}
	return out
}

// Success returns true if every selected artifact reached StatusDeployed.
func (s *Summary) Success() bool {
	return s.Errored == 0
}
