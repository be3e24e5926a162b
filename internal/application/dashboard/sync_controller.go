package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appreport "github.com/farmstore/backend/internal/application/report"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State is the load state of the dashboard
type State string

const (
	StateIdle    State = "IDLE"
	StateLoading State = "LOADING"
	StateReady   State = "READY"
)

// Trigger is what asked for a reload
type Trigger string

const (
	TriggerStart  Trigger = "start"
	TriggerPoll   Trigger = "poll"
	TriggerPush   Trigger = "push"
	TriggerManual Trigger = "manual"
)

// Load sources reported to metrics
const (
	sourceStore = "store"
	sourceLocal = "local"
	sourceError = "error"
)

// ErrNotRunning is returned by Refresh before Start or after Stop
var ErrNotRunning = shared.ErrInvalidState.WithMessage("Dashboard is not running")

// Loader produces dashboard snapshots
type Loader interface {
	Snapshot(ctx context.Context, limits appreport.Limits) (appreport.Snapshot, error)
}

// Config holds configuration for a SyncController
type Config struct {
	PollInterval time.Duration
	PushDebounce time.Duration
	LoadTimeout  time.Duration
	Limits       appreport.Limits
}

// DefaultConfig returns the default dashboard configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		PushDebounce: time.Second,
		LoadTimeout:  10 * time.Second,
		Limits: appreport.Limits{
			TopProducts:  appreport.DefaultTopProductsLimit,
			RecentOrders: appreport.DefaultRecentOrdersLimit,
		},
	}
}

// View is what the dashboard shows. Snapshot is the last authoritative data,
// or local data flagged Stale when nothing better was ever loaded.
type View struct {
	State    State
	Snapshot *appreport.Snapshot
	// Stale is set when the latest load could not reach the store
	Stale bool
	// Err is set when the latest load failed for another reason; it is shown to the user
	Err           error
	LastLoadedAt  time.Time
	LastAttemptAt time.Time
	Loads         uint64
}

// SyncController keeps the dashboard view fresh. Ticker ticks, row change
// pushes and manual refreshes all mark it dirty; at most one load runs at a
// time and triggers arriving during a load are dropped.
type SyncController struct {
	loader  Loader
	feed    shared.RowChangeFeed
	logger  *zap.Logger
	metrics *telemetry.StoreMetrics
	group   singleflight.Group
	dirty   chan Trigger

	mu        sync.Mutex
	cfg       Config
	view      View
	running   bool
	cancel    context.CancelFunc
	runCtx    context.Context
	wg        sync.WaitGroup
	ticker    *time.Ticker
	debounce  *time.Timer
	sub       shared.Subscription
	listeners map[int]chan View
	nextID    int
}

// NewSyncController creates a controller. feed may be nil to disable push.
func NewSyncController(loader Loader, feed shared.RowChangeFeed, cfg Config, logger *zap.Logger) (*SyncController, error) {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PushDebounce <= 0 {
		cfg.PushDebounce = def.PushDebounce
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = def.LoadTimeout
	}
	if loader == nil {
		return nil, shared.ErrInvalidInput.WithMessage("dashboard loader is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncController{
		loader:    loader,
		feed:      feed,
		logger:    logger,
		cfg:       cfg,
		dirty:     make(chan Trigger, 1),
		view:      View{State: StateIdle},
		listeners: make(map[int]chan View),
	}, nil
}

// SetStoreMetrics sets the metrics collector
func (c *SyncController) SetStoreMetrics(m *telemetry.StoreMetrics) {
	c.metrics = m
}

// Start subscribes to row changes, starts polling and schedules the first load.
// Starting a running controller is a no-op.
func (c *SyncController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	if c.feed != nil {
		sub, err := c.feed.Subscribe(runCtx, c.onRowChange, shared.TableOrders, shared.TableOrderItems)
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe to row changes: %w", err)
		}
		c.sub = sub
	}

	select {
	case <-c.dirty:
	default:
	}
	c.running = true
	c.runCtx = runCtx
	c.cancel = cancel
	c.ticker = time.NewTicker(c.cfg.PollInterval)
	c.wg.Add(1)
	go c.run(runCtx, c.ticker)

	c.markDirtyLocked(TriggerStart)
	c.logger.Info("dashboard sync started",
		zap.Duration("poll_interval", c.cfg.PollInterval),
		zap.Duration("push_debounce", c.cfg.PushDebounce),
		zap.Bool("push", c.feed != nil),
	)
	return nil
}

// Stop releases the ticker, the debounce timer and the push subscription and
// waits for the loop to exit. Listener channels are closed. Safe to call twice.
func (c *SyncController) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	sub := c.sub
	c.sub = nil
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	c.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("failed to unsubscribe from row changes", zap.Error(err))
		}
	}
	c.wg.Wait()

	c.mu.Lock()
	c.ticker.Stop()
	c.ticker = nil
	c.view.State = StateIdle
	for id, ch := range c.listeners {
		close(ch)
		delete(c.listeners, id)
	}
	c.mu.Unlock()
	c.logger.Info("dashboard sync stopped")
}

// Reconfigure changes the polling interval of the running ticker in place.
// The same interval again is a no-op.
func (c *SyncController) Reconfigure(interval time.Duration) error {
	if interval <= 0 {
		return shared.ErrInvalidInput.WithMessage("poll interval must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if interval == c.cfg.PollInterval {
		return nil
	}
	c.cfg.PollInterval = interval
	if c.ticker != nil {
		c.ticker.Reset(interval)
	}
	c.logger.Info("dashboard poll interval changed", zap.Duration("poll_interval", interval))
	return nil
}

// PollInterval returns the current polling interval
func (c *SyncController) PollInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.PollInterval
}

// Refresh loads now and returns the resulting view. A refresh arriving while a
// load is running waits for that load instead of starting another.
func (c *SyncController) Refresh(ctx context.Context) (View, error) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return View{}, ErrNotRunning
	}
	runCtx := c.runCtx
	c.wg.Add(1)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer c.wg.Done()
		defer close(done)
		c.load(runCtx, TriggerManual)
	}()
	select {
	case <-done:
		return c.View(), nil
	case <-ctx.Done():
		return c.View(), ctx.Err()
	}
}

// State returns the current load state
func (c *SyncController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.State
}

// View returns the current view
func (c *SyncController) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Subscribe returns a channel receiving the view after every completed load.
// Only the latest view is kept for a slow reader. The channel is closed by
// cancel or Stop.
func (c *SyncController) Subscribe() (<-chan View, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan View, 1)
	if !c.running {
		close(ch)
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if l, ok := c.listeners[id]; ok {
			close(l)
			delete(c.listeners, id)
		}
	}
}

func (c *SyncController) run(ctx context.Context, ticker *time.Ticker) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.load(ctx, TriggerPoll)
		case trigger := <-c.dirty:
			c.load(ctx, trigger)
		}
	}
}

func (c *SyncController) onRowChange(context.Context, shared.RowChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if c.debounce == nil {
		c.debounce = time.AfterFunc(c.cfg.PushDebounce, c.flushPush)
		return
	}
	c.debounce.Reset(c.cfg.PushDebounce)
}

func (c *SyncController) flushPush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debounce = nil
	if c.running {
		c.markDirtyLocked(TriggerPush)
	}
}

// markDirtyLocked signals the loop. While a load is running the trigger is
// dropped, and a trigger already pending absorbs this one.
func (c *SyncController) markDirtyLocked(trigger Trigger) {
	if c.view.State == StateLoading {
		return
	}
	select {
	case c.dirty <- trigger:
	default:
	}
}

func (c *SyncController) load(ctx context.Context, trigger Trigger) {
	_, _, _ = c.group.Do("snapshot", func() (any, error) {
		c.loadOnce(ctx, trigger)
		return nil, nil
	})
}

func (c *SyncController) loadOnce(ctx context.Context, trigger Trigger) {
	c.mu.Lock()
	limits := c.cfg.Limits
	timeout := c.cfg.LoadTimeout
	c.view.State = StateLoading
	c.view.LastAttemptAt = time.Now()
	c.mu.Unlock()

	start := time.Now()
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	snap, err := c.loader.Snapshot(loadCtx, limits)
	cancel()

	source := c.apply(snap, err)
	c.metrics.RecordDashboardLoad(ctx, string(trigger), source, time.Since(start))
	c.logger.Debug("dashboard loaded",
		zap.String("trigger", string(trigger)),
		zap.String("source", source),
		zap.Duration("duration", time.Since(start)),
	)
}

func (c *SyncController) apply(snap appreport.Snapshot, err error) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := &c.view
	v.State = StateReady
	v.Loads++
	source := sourceStore

	switch {
	case err != nil && (shared.IsConnectivityError(err) || errors.Is(err, context.Canceled)):
		v.Stale = true
		source = sourceLocal
		c.logger.Warn("dashboard load could not reach the store, keeping last data", zap.Error(err))
	case err != nil:
		v.Err = err
		source = sourceError
		c.logger.Error("dashboard load failed", zap.Error(err))
	case !snap.Authoritative:
		v.Stale = true
		v.Err = nil
		source = sourceLocal
		if v.Snapshot == nil || !v.Snapshot.Authoritative {
			v.Snapshot = &snap
		}
	default:
		v.Snapshot = &snap
		v.Stale = false
		v.Err = nil
		v.LastLoadedAt = snap.GeneratedAt
	}

	for _, ch := range c.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- *v
	}
	return source
}
