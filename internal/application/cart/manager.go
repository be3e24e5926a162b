package cart

import (
	"context"
	"sync"
	"time"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager owns one Store per session. A store is loaded once, on first use,
// and dropped from memory by EvictIdle or Close.
type Manager struct {
	mu     sync.Mutex
	step   decimal.Decimal
	kv     shared.KeyValueStore
	logger *zap.Logger
	now    func() time.Time
	stores map[string]*session
}

type session struct {
	store    *Store
	lastUsed time.Time
}

// NewManager creates a manager whose carts use step and persist to kv
func NewManager(step decimal.Decimal, kv shared.KeyValueStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		step:   step,
		kv:     kv,
		logger: logger,
		now:    time.Now,
		stores: make(map[string]*session),
	}
}

// Step returns the quantity step carts are created with
func (m *Manager) Step() decimal.Decimal {
	return m.step
}

// Store returns the loaded store for sessionID
func (m *Manager) Store(ctx context.Context, sessionID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[sessionID]; ok {
		s.lastUsed = m.now()
		return s.store, nil
	}
	st, err := NewStore(sessionID, m.step, m.kv, m.logger)
	if err != nil {
		return nil, err
	}
	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	m.stores[sessionID] = &session{store: st, lastUsed: m.now()}
	return st, nil
}

// EvictIdle drops the stores not used for idle or longer and returns how many
// it dropped. Persisted carts are kept and reloaded on the next use.
func (m *Manager) EvictIdle(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idle)
	evicted := 0
	for id, s := range m.stores {
		if !s.lastUsed.After(cutoff) {
			delete(m.stores, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Debug("evicted idle carts", zap.Int("count", evicted), zap.Int("remaining", len(m.stores)))
	}
	return evicted
}

// Close drops the in-memory store of sessionID. The persisted cart is kept.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, sessionID)
}

// Sessions returns the number of loaded stores
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}
