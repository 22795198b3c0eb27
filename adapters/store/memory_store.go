package store

import (
	"context"
	"sync"

	"github.com/layer-3/tradeclient/core"
)

// MemoryStore keeps credentials in process memory
type MemoryStore struct {
	creds *core.Credentials
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored credentials
func (s *MemoryStore) Get(ctx context.Context) (core.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.creds == nil {
		return core.Credentials{}, core.ErrNoCredentials
	}
	return *s.creds, nil
}

// Set replaces the stored credentials
func (s *MemoryStore) Set(ctx context.Context, creds core.Credentials) error {
	if creds.IsZero() {
		return core.ErrCredentialsEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = &creds
	return nil
}

// Clear removes the stored credentials
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = nil
	return nil
}
