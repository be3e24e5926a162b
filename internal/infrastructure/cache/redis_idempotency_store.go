package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "farmstore:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore using Redis.
// Instances sharing the Redis server share the processed keys.
type RedisIdempotencyStore struct {
	client     *redis.Client
	keyPrefix  string
	ownsClient bool
}

// NewRedisIdempotencyStore creates a store that owns a new Redis connection
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	s := NewRedisIdempotencyStoreWithClient(client, keyPrefix)
	s.ownsClient = true
	return s
}

// NewRedisIdempotencyStoreWithClient creates a store on a shared client.
// The caller retains ownership of the client.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed marks a key as processed with a TTL.
// Uses SETNX so that concurrent replays race on a single atomic write.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, shared.WrapConnectivity(fmt.Errorf("failed to mark key as processed: %w", err))
	}
	return ok, nil
}

// IsProcessed checks if a key has already been processed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, shared.WrapConnectivity(fmt.Errorf("failed to check processed key: %w", err))
	}
	return n > 0, nil
}

// Forget removes a key so that it can be processed again
func (s *RedisIdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return shared.WrapConnectivity(fmt.Errorf("failed to forget key: %w", err))
	}
	return nil
}

// Close closes the Redis client when the store owns it
func (s *RedisIdempotencyStore) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

// Ensure RedisIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
