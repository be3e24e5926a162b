package event

import (
	"context"
	"sync/atomic"

	"github.com/farmstore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryRowChangeFeed delivers row changes to handlers in the same process.
// Handlers run synchronously on the publisher's goroutine and must not block.
type InMemoryRowChangeFeed struct {
	registry *subscriberRegistry
	logger   *zap.Logger
	closed   atomic.Bool
}

// NewInMemoryRowChangeFeed creates a new in-memory feed
func NewInMemoryRowChangeFeed(logger *zap.Logger) *InMemoryRowChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryRowChangeFeed{
		registry: newSubscriberRegistry(),
		logger:   logger,
	}
}

// Publish hands change to every subscriber of its table
func (f *InMemoryRowChangeFeed) Publish(ctx context.Context, change shared.RowChange) error {
	if f.closed.Load() {
		return shared.ErrUnavailable.WithMessage("row change feed closed")
	}
	for _, s := range f.registry.matching(change.Table) {
		f.dispatch(ctx, s, change)
	}
	return nil
}

// Subscribe registers handler for tables; no tables means every table.
// The subscription ends when ctx is done or Unsubscribe is called.
func (f *InMemoryRowChangeFeed) Subscribe(ctx context.Context, handler shared.RowChangeHandler, tables ...string) (shared.Subscription, error) {
	if f.closed.Load() {
		return nil, shared.ErrUnavailable.WithMessage("row change feed closed")
	}
	sub := f.registry.add(handler, tables, func(id uint64) *subscription {
		return newSubscription(ctx, func() error {
			f.registry.remove(id)
			return nil
		})
	})
	f.logger.Debug("row change handler subscribed", zap.Strings("tables", tables))
	return sub, nil
}

// Close drops every subscriber. Later publishes fail.
func (f *InMemoryRowChangeFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	for _, s := range f.registry.all() {
		_ = s.sub.Unsubscribe()
	}
	return nil
}

// Subscribers returns the number of registered handlers
func (f *InMemoryRowChangeFeed) Subscribers() int {
	return f.registry.len()
}

func (f *InMemoryRowChangeFeed) dispatch(ctx context.Context, s *subscriber, change shared.RowChange) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("row change handler panicked",
				zap.String("table", change.Table),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(ctx, change)
}

var _ shared.RowChangeFeed = (*InMemoryRowChangeFeed)(nil)
