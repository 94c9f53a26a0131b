// Copyright 2025, the fabdeploy authors.  All rights reserved.

package checkpoint

import (
	"sync"
)

// memoryStore is an in-memory Store, used by tests and by callers that must not touch the file
// system.
type memoryStore struct {
	mu  sync.Mutex
	env map[string]Checkpoint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{env: make(map[string]Checkpoint)}
}

func (s *memoryStore) Load(env string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, has := s.env[env]; has {
		out := c
		return &out, nil
	}
	return nil, nil
}

func (s *memoryStore) Save(env string, c Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[env] = c
	return nil
}
