package storage

import (
	"fmt"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// Store is a KeyValueStore that can also enumerate its keys
type Store interface {
	shared.KeyValueStore
	shared.KeyLister
}

// NewStore selects the durable store named by cfg.Storage.
// client may be nil unless the redis backend is selected.
func NewStore(cfg config.CartConfig, client *redis.Client) (Store, error) {
	switch cfg.Storage {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("cart storage %q requires redis to be enabled", cfg.Storage)
		}
		return NewRedisStore(client), nil
	case "file", "":
		return NewOSFileStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unsupported cart storage %q", cfg.Storage)
	}
}
