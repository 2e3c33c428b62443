package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopsync/backend/internal/domain/upstream"
)

// lockEntry represents a held lock with expiration
type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryLockStore implements upstream.LockStore using an in-memory map.
// This is suitable for single-instance deployments and testing
type InMemoryLockStore struct {
	mu      sync.Mutex
	entries map[string]lockEntry
}

// NewInMemoryLockStore creates a new in-memory lock store
func NewInMemoryLockStore() *InMemoryLockStore {
	return &InMemoryLockStore{
		entries: make(map[string]lockEntry),
	}
}

// Acquire attempts to take the lock. Expired entries are treated as absent,
// so no background cleanup is needed for correctness.
func (s *InMemoryLockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists && time.Now().Before(e.expiresAt) {
		return "", nil // Held elsewhere
	}

	token := uuid.NewString()
	s.entries[key] = lockEntry{
		token:     token,
		expiresAt: time.Now().Add(ttl),
	}
	return token, nil
}

// Release frees the lock. Releasing an absent or expired lock is a no-op.
func (s *InMemoryLockStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryLockStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure InMemoryLockStore implements LockStore
var _ upstream.LockStore = (*InMemoryLockStore)(nil)
