package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/farmstore/backend/internal/domain/cart"
	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// KeyPrefix prefixes the storage key of every cart
const KeyPrefix = "cart:"

// Key returns the storage key of the cart for sessionID
func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

type persistedCart struct {
	Lines     []cart.Line `json:"lines"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Snapshot is a read-only copy of a session's cart
type Snapshot struct {
	SessionID string          `json:"session_id"`
	Lines     []cart.Line     `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount decimal.Decimal `json:"item_count"`
}

// Store is the durable cart of one session.
// Every mutation is written through to the key/value store before it returns;
// a failed write rolls the in-memory cart back.
type Store struct {
	mu        sync.Mutex
	sessionID string
	step      decimal.Decimal
	kv        shared.KeyValueStore
	logger    *zap.Logger
	cart      *cart.Cart
	loaded    bool
}

// NewStore creates the store for sessionID. Call Load before using it.
func NewStore(sessionID string, step decimal.Decimal, kv shared.KeyValueStore, logger *zap.Logger) (*Store, error) {
	if sessionID == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Session ID is required")
	}
	c, err := cart.New(step)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessionID: sessionID,
		step:      step,
		kv:        kv,
		logger:    logger.With(zap.String("session_id", sessionID)),
		cart:      c,
	}, nil
}

// Load reads the persisted cart. Corrupt data is discarded and an empty cart
// kept; only a storage failure is returned.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, Key(s.sessionID))
	if errors.Is(err, shared.ErrNotFound) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	var pc persistedCart
	if err := json.Unmarshal(data, &pc); err != nil {
		s.discard(ctx, err)
		return nil
	}
	c, err := cart.Restore(s.step, pc.Lines)
	if err != nil {
		s.discard(ctx, err)
		return nil
	}
	s.cart = c
	s.loaded = true
	return nil
}

func (s *Store) discard(ctx context.Context, cause error) {
	s.logger.Warn("discarding unreadable stored cart", zap.Error(cause))
	if err := s.kv.Delete(ctx, Key(s.sessionID)); err != nil {
		s.logger.Warn("failed to delete unreadable stored cart", zap.Error(err))
	}
	s.cart, _ = cart.New(s.step)
	s.loaded = true
}

// SessionID returns the owning session
func (s *Store) SessionID() string {
	return s.sessionID
}

// Add increases product by step. Returns false when the stock clamp refused it.
func (s *Store) Add(ctx context.Context, product catalog.Product, step decimal.Decimal) (bool, error) {
	return s.mutate(ctx, func(c *cart.Cart) (bool, error) {
		return c.Add(product, step)
	})
}

// Remove decreases productID by step, deleting the line at zero
func (s *Store) Remove(ctx context.Context, productID uuid.UUID, step decimal.Decimal) (bool, error) {
	return s.mutate(ctx, func(c *cart.Cart) (bool, error) {
		return c.Remove(productID, step)
	})
}

// SetLine sets the absolute quantity of product
func (s *Store) SetLine(ctx context.Context, product catalog.Product, quantity decimal.Decimal) (bool, error) {
	return s.mutate(ctx, func(c *cart.Cart) (bool, error) {
		return c.SetLine(product, quantity)
	})
}

// Clear empties the cart and deletes its stored copy
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, Key(s.sessionID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.cart.Clear()
	return nil
}

// Total is recomputed from the lines on every call
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

// Cart returns an independent copy of the cart
func (s *Store) Cart() *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := cart.Restore(s.step, s.cart.Lines())
	return c
}

// Snapshot returns the current lines and totals
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID: s.sessionID,
		Lines:     s.cart.Lines(),
		Total:     s.cart.Total(),
		ItemCount: s.cart.ItemCount(),
	}
}

func (s *Store) mutate(ctx context.Context, fn func(*cart.Cart) (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.load(ctx); err != nil {
			return false, err
		}
	}

	before := s.cart.Lines()
	changed, err := fn(s.cart)
	if err != nil || !changed {
		return false, err
	}
	if err := s.persist(ctx); err != nil {
		s.cart, _ = cart.Restore(s.step, before)
		return false, err
	}
	return true, nil
}

func (s *Store) persist(ctx context.Context) error {
	if s.cart.IsEmpty() {
		if err := s.kv.Delete(ctx, Key(s.sessionID)); err != nil {
			return fmt.Errorf("persist cart: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(persistedCart{Lines: s.cart.Lines(), UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Put(ctx, Key(s.sessionID), data); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
