package event

import (
	"fmt"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRowChangeFeed selects the feed named by cfg.Backend.
// client may be nil unless the redis backend is selected.
func NewRowChangeFeed(cfg config.PushConfig, client *redis.Client, logger *zap.Logger) (shared.RowChangeFeed, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewInMemoryRowChangeFeed(logger), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("push backend %q requires redis to be enabled", cfg.Backend)
		}
		return NewRedisRowChangeFeed(client, WithChannelPrefix(cfg.Channel), WithFeedLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unsupported push backend %q", cfg.Backend)
	}
}
