package shared

import "context"

// KeyValueStore is durable storage for per-session state such as the cart
// and the offline order queue. Get returns ErrNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate keys sharing a prefix
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}
