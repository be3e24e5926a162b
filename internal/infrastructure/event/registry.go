package event

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/farmstore/backend/internal/domain/shared"
)

// subscriber is one registered handler with its table filter
type subscriber struct {
	id      uint64
	tables  []string
	handler shared.RowChangeHandler
	sub     *subscription
}

func (s *subscriber) wants(table string) bool {
	return len(s.tables) == 0 || slices.Contains(s.tables, table)
}

// subscriberRegistry is a thread-safe set of subscribers
type subscriberRegistry struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscriber
}

func newSubscriberRegistry() *subscriberRegistry {
	return &subscriberRegistry{subs: make(map[uint64]*subscriber)}
}

// add registers handler and builds its subscription handle under the lock
func (r *subscriberRegistry) add(handler shared.RowChangeHandler, tables []string, handle func(id uint64) *subscription) *subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := &subscriber{id: r.nextID, tables: slices.Clone(tables), handler: handler}
	s.sub = handle(s.id)
	r.subs[s.id] = s
	return s.sub
}

func (r *subscriberRegistry) remove(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[id]
	delete(r.subs, id)
	return ok
}

func (r *subscriberRegistry) matching(table string) []*subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*subscriber
	for _, s := range r.subs {
		if s.wants(table) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *subscriber) int { return cmp.Compare(a.id, b.id) })
	return out
}

func (r *subscriberRegistry) all() []*subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out
}

func (r *subscriberRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// subscription unsubscribes once and stops its context watcher
type subscription struct {
	once   sync.Once
	done   chan struct{}
	cancel func() error
	err    error
}

func newSubscription(ctx context.Context, cancel func() error) *subscription {
	s := &subscription{done: make(chan struct{}), cancel: cancel}
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Unsubscribe()
			case <-s.done:
			}
		}()
	}
	return s
}

// Unsubscribe removes the handler; later calls are no-ops
func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.cancel()
		close(s.done)
	})
	return s.err
}
