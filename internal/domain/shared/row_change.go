package shared

import (
	"context"
	"time"
)

// ChangeKind is the kind of row mutation carried by a RowChange
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Table names observed by the push feed
const (
	TableProducts   = "products"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
)

// RowChange is a push notification that a row changed in the backing store
type RowChange struct {
	Table      string         `json:"table"`
	Kind       ChangeKind     `json:"change_kind"`
	Row        map[string]any `json:"row,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewRowChange creates a row change stamped with the current time
func NewRowChange(table string, kind ChangeKind, row map[string]any) RowChange {
	return RowChange{
		Table:      table,
		Kind:       kind,
		Row:        row,
		OccurredAt: time.Now(),
	}
}

// RowChangeHandler receives row changes for the tables it subscribed to
type RowChangeHandler func(ctx context.Context, change RowChange)

// Subscription is a live push subscription
type Subscription interface {
	// Unsubscribe releases the subscription. It is safe to call more than once.
	Unsubscribe() error
}

// RowChangePublisher publishes row changes
type RowChangePublisher interface {
	Publish(ctx context.Context, change RowChange) error
}

// RowChangeFeed delivers row changes keyed by table name
type RowChangeFeed interface {
	RowChangePublisher
	// Subscribe registers handler for the given tables; no tables means all tables
	Subscribe(ctx context.Context, handler RowChangeHandler, tables ...string) (Subscription, error)
	Close() error
}
