package store

import (
	"context"
	"sync"
	"time"

	"github.com/custodykit/keystone/ports"
)

// MemoryStore is an in-memory implementation of the Store interface, intended
// for tests and single-instance deployments.
type MemoryStore struct {
	consumed map[string]time.Time
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		consumed: make(map[string]time.Time),
	}
}

// MarkConsumed records the identifier as consumed until the TTL elapses.
func (s *MemoryStore) MarkConsumed(ctx context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry := time.Now().Add(ttl)
	s.consumed[id] = expiry

	go func() {
		time.Sleep(ttl)

		s.mu.Lock()
		defer s.mu.Unlock()

		// Only delete if a later MarkConsumed has not extended the entry.
		if stored, exists := s.consumed[id]; exists && !stored.After(expiry) {
			delete(s.consumed, id)
		}
	}()

	return nil
}

// IsConsumed checks whether the identifier is currently marked consumed.
func (s *MemoryStore) IsConsumed(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, exists := s.consumed[id]
	if !exists {
		return false, nil
	}
	if time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}
