// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Package deploytest provides in-memory fakes for exercising the deployment engine without a real
// platform, file system, or repository behind it.
package deploytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/fabdeploy/fabdeploy/pkg/platform"
	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/resource/deploy"
)

// Call records one remote invocation against the fake platform.
type Call struct {
	Method      string // "exists", "create" or "update"
	Type        resource.Type
	DisplayName string
	RemoteID    string
}

// Client is an in-memory platform.Client.  Existing artifacts are keyed by type and display name;
// errors can be injected per display name to exercise failure handling.
type Client struct {
	mu       sync.Mutex
	nextID   int
	items    map[string]string // "type/displayName" -> remote ID
	failures map[string]error  // displayName -> error injected on any call
	calls    []Call
}

// NewClient creates an empty fake platform.
func NewClient() *Client {
	return &Client{
		items:    make(map[string]string),
		failures: make(map[string]error),
	}
}

// Seed marks an artifact as already existing remotely.
func (c *Client) Seed(t resource.Type, displayName, remoteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key(t, displayName)] = remoteID
}

// FailWith injects an error returned by every call touching the given display name.
func (c *Client) FailWith(displayName string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[displayName] = err
}

// Calls returns every remote invocation made so far, in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// MutatingCalls returns only the create and update invocations.
func (c *Client) MutatingCalls() []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Method != "exists" {
			out = append(out, call)
		}
	}
	return out
}

func (c *Client) Exists(ctx context.Context, t resource.Type, displayName string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: "exists", Type: t, DisplayName: displayName})
	if err := c.failures[displayName]; err != nil {
		return "", false, err
	}
	id, found := c.items[key(t, displayName)]
	return id, found, nil
}

func (c *Client) Create(ctx context.Context, t resource.Type, displayName string, definition []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[displayName]; err != nil {
		c.calls = append(c.calls, Call{Method: "create", Type: t, DisplayName: displayName})
		return "", err
	}
	c.nextID++
	id := fmt.Sprintf("remote-%d", c.nextID)
	c.items[key(t, displayName)] = id
	c.calls = append(c.calls, Call{Method: "create", Type: t, DisplayName: displayName, RemoteID: id})
	return id, nil
}

func (c *Client) Update(ctx context.Context, remoteID string, t resource.Type, definition []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: "update", Type: t, RemoteID: remoteID})
	for name, err := range c.failures {
		if c.items[key(t, name)] == remoteID && err != nil {
			return err
		}
	}
	return nil
}

var _ platform.Client = (*Client)(nil)

func key(t resource.Type, displayName string) string {
	return string(t) + "/" + displayName
}

// StaticLoader serves fixed definition content for every artifact of a type.
type StaticLoader struct {
	Content []byte
	Err     error
}

func (l *StaticLoader) Load(a *resource.Artifact) (*deploy.Definition, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return &deploy.Definition{Content: l.Content}, nil
}

// LoadersFor builds a loader map serving the given content for every listed type.
func LoadersFor(content []byte, types ...resource.Type) deploy.Loaders {
	loaders := make(deploy.Loaders, len(types))
	for _, t := range types {
		loaders[t] = &StaticLoader{Content: content}
	}
	return loaders
}

// RevisionSource is a canned revision source for change-detection tests.
type RevisionSource struct {
	Head        string
	Changes     map[string][]string // "from..to" -> changed paths
	Unavailable bool
	DiffErr     error
}

func (s *RevisionSource) CurrentRevision() (string, error) {
	return s.Head, nil
}

func (s *RevisionSource) Diff(from, to string) ([]string, error) {
	if s.DiffErr != nil {
		return nil, s.DiffErr
	}
	return s.Changes[from+".."+to], nil
}

func (s *RevisionSource) IsUnavailable() bool {
	return s.Unavailable
}
