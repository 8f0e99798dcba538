package store

import (
	"context"
	"sync"
)

// memoryStore keeps the identifier in process memory. It does not
// survive a restart and exists for tests and ephemeral runs.
type memoryStore struct {
	mu        sync.RWMutex
	sessionID string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (s *memoryStore) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID, nil
}

func (s *memoryStore) Set(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
