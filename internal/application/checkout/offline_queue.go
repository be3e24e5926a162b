package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Storage key prefixes of the offline queues
const (
	PendingKeyPrefix  = "offline-orders:"
	RejectedKeyPrefix = "offline-rejected:"
)

// PendingKey returns the key of the pending offline orders of sessionID
func PendingKey(sessionID string) string {
	return PendingKeyPrefix + sessionID
}

// RejectedKey returns the key of the offline orders that could not be uploaded
func RejectedKey(sessionID string) string {
	return RejectedKeyPrefix + sessionID
}

// QueuedOrder is the stored form of an order taken while the store was unreachable
type QueuedOrder struct {
	ID        uuid.UUID         `json:"id"`
	Customer  order.Customer    `json:"customer"`
	Location  *order.GeoPoint   `json:"location,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Total     decimal.Decimal   `json:"total"`
	Status    order.Status      `json:"status"`
	Channel   order.Channel     `json:"channel"`
	Lines     []order.OrderLine `json:"lines"`
	CreatedAt time.Time         `json:"created_at"`
	Reason    string            `json:"reason,omitempty"`
}

func queuedFromOrder(o *order.Order) QueuedOrder {
	return QueuedOrder{
		ID:        o.ID,
		Customer:  o.Customer,
		Location:  o.Location,
		Notes:     o.Notes,
		Total:     o.Total,
		Status:    o.Status,
		Channel:   o.Channel,
		Lines:     slices.Clone(o.Lines),
		CreatedAt: o.CreatedAt,
	}
}

// ToOrder converts the stored form back into an order flagged as offline
func (q QueuedOrder) ToOrder() *order.Order {
	return &order.Order{
		BaseEntity: shared.BaseEntity{ID: q.ID, CreatedAt: q.CreatedAt, UpdatedAt: q.CreatedAt},
		Customer:   q.Customer,
		Location:   q.Location,
		Notes:      q.Notes,
		Total:      q.Total,
		Status:     q.Status,
		Channel:    q.Channel,
		Offline:    true,
		Lines:      slices.Clone(q.Lines),
	}
}

func (q QueuedOrder) valid() bool {
	if q.ID == uuid.Nil || len(q.Lines) == 0 || !q.Channel.IsValid() {
		return false
	}
	return q.ToOrder().CheckTotal() == nil
}

// OfflineQueue keeps orders per session in the durable key/value store until
// they can be uploaded
type OfflineQueue struct {
	mu     sync.Mutex
	kv     shared.KeyValueStore
	logger *zap.Logger
}

// NewOfflineQueue creates a queue over kv
func NewOfflineQueue(kv shared.KeyValueStore, logger *zap.Logger) *OfflineQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfflineQueue{kv: kv, logger: logger}
}

// Append queues o for sessionID. Appending an id already queued replaces it.
func (q *OfflineQueue) Append(ctx context.Context, sessionID string, o *order.Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.appendTo(ctx, PendingKey(sessionID), queuedFromOrder(o))
}

// List returns the pending orders of sessionID, oldest first
func (q *OfflineQueue) List(ctx context.Context, sessionID string) ([]QueuedOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.read(ctx, PendingKey(sessionID))
}

// Remove drops the given orders from the pending queue of sessionID
func (q *OfflineQueue) Remove(ctx context.Context, sessionID string, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	key := PendingKey(sessionID)
	entries, err := q.read(ctx, key)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(entries, func(e QueuedOrder) bool {
		return slices.Contains(ids, e.ID)
	})
	return q.write(ctx, key, kept)
}

// Reject moves id from the pending queue to the rejected list with reason
func (q *OfflineQueue) Reject(ctx context.Context, sessionID string, id uuid.UUID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := PendingKey(sessionID)
	entries, err := q.read(ctx, key)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(entries, func(e QueuedOrder) bool { return e.ID == id })
	if i < 0 {
		return nil
	}
	rejected := entries[i]
	rejected.Reason = reason
	if err := q.appendTo(ctx, RejectedKey(sessionID), rejected); err != nil {
		return err
	}
	return q.write(ctx, key, slices.Delete(entries, i, i+1))
}

// Rejected returns the orders of sessionID that need manual review
func (q *OfflineQueue) Rejected(ctx context.Context, sessionID string) ([]QueuedOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.read(ctx, RejectedKey(sessionID))
}

// Sessions returns every session with pending orders.
// Stores that cannot enumerate keys report none.
func (q *OfflineQueue) Sessions(ctx context.Context) ([]string, error) {
	lister, ok := q.kv.(shared.KeyLister)
	if !ok {
		return nil, nil
	}
	keys, err := lister.Keys(ctx, PendingKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list offline sessions: %w", err)
	}
	sessions := make([]string, 0, len(keys))
	for _, k := range keys {
		sessions = append(sessions, strings.TrimPrefix(k, PendingKeyPrefix))
	}
	return sessions, nil
}

// Pending returns the pending orders of every session
func (q *OfflineQueue) Pending(ctx context.Context) ([]order.Order, error) {
	sessions, err := q.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	var orders []order.Order
	for _, s := range sessions {
		entries, err := q.List(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			orders = append(orders, *e.ToOrder())
		}
	}
	return orders, nil
}

func (q *OfflineQueue) appendTo(ctx context.Context, key string, entry QueuedOrder) error {
	entries, err := q.read(ctx, key)
	if err != nil {
		return err
	}
	entries = slices.DeleteFunc(entries, func(e QueuedOrder) bool { return e.ID == entry.ID })
	return q.write(ctx, key, append(entries, entry))
}

func (q *OfflineQueue) read(ctx context.Context, key string) ([]QueuedOrder, error) {
	data, err := q.kv.Get(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read offline queue: %w", err)
	}

	var entries []QueuedOrder
	if err := json.Unmarshal(data, &entries); err != nil {
		q.discard(ctx, key, err)
		return nil, nil
	}
	if slices.ContainsFunc(entries, func(e QueuedOrder) bool { return !e.valid() }) {
		q.discard(ctx, key, errors.New("invalid queued order"))
		return nil, nil
	}
	return entries, nil
}

func (q *OfflineQueue) write(ctx context.Context, key string, entries []QueuedOrder) error {
	if len(entries) == 0 {
		if err := q.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("write offline queue: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode offline queue: %w", err)
	}
	if err := q.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write offline queue: %w", err)
	}
	return nil
}

func (q *OfflineQueue) discard(ctx context.Context, key string, cause error) {
	q.logger.Warn("discarding unreadable offline queue", zap.String("key", key), zap.Error(cause))
	if err := q.kv.Delete(ctx, key); err != nil {
		q.logger.Warn("failed to delete unreadable offline queue", zap.String("key", key), zap.Error(err))
	}
}
