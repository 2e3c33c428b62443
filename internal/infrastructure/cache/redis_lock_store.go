package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shopsync/backend/internal/domain/upstream"
)

// RedisLockStore implements upstream.LockStore on Redis SET NX. Suitable for
// distributed deployments where multiple instances must not poll the same
// merchant concurrently. The TTL bounds how long a crashed holder can keep
// the lock; there is no explicit renewal.
type RedisLockStore struct {
	client *redis.Client
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisLockStore creates a new Redis-backed lock store
func NewRedisLockStore(cfg RedisConfig) (*RedisLockStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLockStore{client: client}, nil
}

// NewRedisLockStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components
func NewRedisLockStoreWithClient(client *redis.Client) *RedisLockStore {
	return &RedisLockStore{client: client}
}

// Acquire attempts to take the lock with SET NX and an expiry. Returns a
// non-empty holder token on success and "" when the lock is held elsewhere.
// Infrastructure failures are wrapped in ErrLockStoreUnavailable so callers
// can distinguish "held" from "unknown" and fail open.
func (s *RedisLockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", upstream.ErrLockStoreUnavailable, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release frees the lock. Deleting a key that already expired is a no-op.
func (s *RedisLockStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", upstream.ErrLockStoreUnavailable, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisLockStore) Close() error {
	return s.client.Close()
}

// Ensure RedisLockStore implements LockStore
var _ upstream.LockStore = (*RedisLockStore)(nil)
