// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Package platform defines the narrow boundary between the deployment engine and the remote
// workspace platform's REST API, plus an HTTP implementation of it.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/fabdeploy/fabdeploy/pkg/resource"
)

// Client is the engine's view of the remote platform.  Existence is keyed by display name within
// the target workspace, because display names are the only identity shared between the local
// source tree and the platform.
type Client interface {
	// Exists looks up an artifact by display name, returning its remote ID when present.
	Exists(ctx context.Context, t resource.Type, displayName string) (string, bool, error)
	// Create creates a new artifact and returns its remote ID.
	Create(ctx context.Context, t resource.Type, displayName string, definition []byte) (string, error)
	// Update replaces an existing artifact's definition wholesale.
	Update(ctx context.Context, remoteID string, t resource.Type, definition []byte) error
}

// ErrorKind classifies platform failures by how the caller should react.
type ErrorKind int

const (
	// KindRejected means the platform rejected this particular payload; retrying the same
	// payload cannot succeed, but other artifacts are unaffected.
	KindRejected ErrorKind = iota
	// KindTransient covers timeouts, throttling and server errors; retrying may succeed.
	KindTransient
	// KindAuth covers authentication and authorization failures; these are fatal to the whole
	// run, since no per-artifact retry can fix credentials.
	KindAuth
)

// Error is a classified failure from the remote platform.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	RetryAfter time.Duration // throttling hint, when the platform provided one.
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsAuth returns true if err is (or wraps) an authentication/authorization failure.
func IsAuth(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindAuth
}

// IsTransient returns true if err is (or wraps) a failure worth retrying.
func IsTransient(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindTransient
}

// RetryAfter extracts the platform's throttling hint from err, or zero if there is none.
func RetryAfter(err error) time.Duration {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.RetryAfter
	}
	return 0
}
