package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long an applied replay key is remembered
const DefaultIdempotencyTTL = 7 * 24 * time.Hour

// IdempotencyStore remembers keys that have already been applied so that a replay
// (for instance an offline order uploaded twice) is applied at most once.
type IdempotencyStore interface {
	// MarkProcessed returns true if key was newly marked, false if it was already there
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Forget removes key so it can be applied again
	Forget(ctx context.Context, key string) error

	Close() error
}
