package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannelPrefix = "farmstore:rows"

// RedisRowChangeFeed carries row changes between instances over Redis Pub/Sub.
// Each table has its own channel named <prefix>:<table>.
type RedisRowChangeFeed struct {
	client     *redis.Client
	ownsClient bool
	prefix     string
	logger     *zap.Logger
	registry   *subscriberRegistry
	closed     atomic.Bool
}

// RedisRowChangeFeedOption is a functional option for configuring the feed
type RedisRowChangeFeedOption func(*RedisRowChangeFeed)

// WithChannelPrefix sets the Pub/Sub channel prefix
func WithChannelPrefix(prefix string) RedisRowChangeFeedOption {
	return func(f *RedisRowChangeFeed) {
		if prefix != "" {
			f.prefix = prefix
		}
	}
}

// WithFeedLogger sets the logger for the feed
func WithFeedLogger(logger *zap.Logger) RedisRowChangeFeedOption {
	return func(f *RedisRowChangeFeed) {
		f.logger = logger
	}
}

// WithOwnedClient makes Close also close the Redis client
func WithOwnedClient() RedisRowChangeFeedOption {
	return func(f *RedisRowChangeFeed) {
		f.ownsClient = true
	}
}

// NewRedisRowChangeFeed creates a feed on client.
// The caller retains ownership of the client unless WithOwnedClient is given.
func NewRedisRowChangeFeed(client *redis.Client, opts ...RedisRowChangeFeedOption) *RedisRowChangeFeed {
	f := &RedisRowChangeFeed{
		client:   client,
		prefix:   defaultChannelPrefix,
		logger:   zap.NewNop(),
		registry: newSubscriberRegistry(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish sends change on its table's channel
func (f *RedisRowChangeFeed) Publish(ctx context.Context, change shared.RowChange) error {
	if f.closed.Load() {
		return shared.ErrUnavailable.WithMessage("row change feed closed")
	}
	data, err := encodeRowChange(change)
	if err != nil {
		return err
	}
	channel := f.channel(change.Table)
	if err := f.client.Publish(ctx, channel, data).Err(); err != nil {
		f.logger.Warn("failed to publish row change",
			zap.String("channel", channel),
			zap.Error(err))
		return shared.WrapConnectivity(fmt.Errorf("failed to publish row change: %w", err))
	}
	return nil
}

// Subscribe listens on the channels of tables, or on every table when none
// are given. It returns once Redis confirmed the subscription.
func (f *RedisRowChangeFeed) Subscribe(ctx context.Context, handler shared.RowChangeHandler, tables ...string) (shared.Subscription, error) {
	if f.closed.Load() {
		return nil, shared.ErrUnavailable.WithMessage("row change feed closed")
	}

	var pubsub *redis.PubSub
	if len(tables) == 0 {
		pubsub = f.client.PSubscribe(ctx, f.channel("*"))
	} else {
		channels := make([]string, len(tables))
		for i, t := range tables {
			channels[i] = f.channel(t)
		}
		pubsub = f.client.Subscribe(ctx, channels...)
	}
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, shared.WrapConnectivity(fmt.Errorf("failed to subscribe to row changes: %w", err))
	}

	loopDone := make(chan struct{})
	sub := f.registry.add(handler, tables, func(id uint64) *subscription {
		return newSubscription(ctx, func() error {
			err := pubsub.Close()
			<-loopDone
			f.registry.remove(id)
			return err
		})
	})

	go f.receive(pubsub, handler, loopDone)

	f.logger.Info("subscribed to row changes", zap.Strings("tables", tables))
	return sub, nil
}

// receive delivers messages until the pubsub is closed
func (f *RedisRowChangeFeed) receive(pubsub *redis.PubSub, handler shared.RowChangeHandler, done chan<- struct{}) {
	defer close(done)
	for msg := range pubsub.Channel() {
		change, err := decodeRowChange([]byte(msg.Payload))
		if err != nil {
			f.logger.Error("dropping malformed row change",
				zap.String("channel", msg.Channel),
				zap.Error(err))
			continue
		}
		f.dispatch(handler, change)
	}
}

func (f *RedisRowChangeFeed) dispatch(handler shared.RowChangeHandler, change shared.RowChange) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("row change handler panicked",
				zap.String("table", change.Table),
				zap.Any("panic", r))
		}
	}()
	handler(context.Background(), change)
}

// Close ends every subscription and, when owned, closes the client
func (f *RedisRowChangeFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	for _, s := range f.registry.all() {
		_ = s.sub.Unsubscribe()
	}
	if f.ownsClient {
		return f.client.Close()
	}
	return nil
}

func (f *RedisRowChangeFeed) channel(table string) string {
	return f.prefix + ":" + table
}

var _ shared.RowChangeFeed = (*RedisRowChangeFeed)(nil)
