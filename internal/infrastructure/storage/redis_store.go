package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "farmstore:kv:"

// RedisStore keeps values in Redis so that every instance sees the same carts
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces every key
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL expires values that have not been written for ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a store on a shared client. The caller owns the client.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound.WithDetail("key", key)
		}
		return nil, shared.WrapConnectivity(fmt.Errorf("failed to read %s: %w", key, err))
	}
	return data, nil
}

// Put replaces the value stored under key
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return shared.WrapConnectivity(fmt.Errorf("failed to store %s: %w", key, err))
	}
	return nil
}

// Delete removes key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return shared.WrapConnectivity(fmt.Errorf("failed to delete %s: %w", key, err))
	}
	return nil
}

// Keys lists keys starting with prefix using SCAN
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, shared.WrapConnectivity(fmt.Errorf("failed to list keys: %w", err))
	}
	return keys, nil
}

var (
	_ shared.KeyValueStore = (*RedisStore)(nil)
	_ shared.KeyLister     = (*RedisStore)(nil)
)
