package store

import (
	"context"
	"sync"
	"time"

	"github.com/garvazsof/MVC/ports"
)

// MemoryStore keeps invalidated token ids in process memory.
// Used when no Redis URL is configured and in tests.
type MemoryStore struct {
	invalidated map[string]time.Time
	mu          sync.RWMutex
	now         func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		invalidated: make(map[string]time.Time),
		now:         now,
	}
}

// InvalidateToken marks a token as invalidated for the given duration
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.invalidated[tokenID] = now.Add(expiry)

	// Drop records that have outlived their tokens
	for id, until := range s.invalidated {
		if now.After(until) {
			delete(s.invalidated, id)
		}
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, exists := s.invalidated[tokenID]
	if !exists {
		return false, nil
	}

	return !s.now().After(until), nil
}

// Ping always succeeds for the memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
