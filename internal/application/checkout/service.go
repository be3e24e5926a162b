package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	appcart "github.com/farmstore/backend/internal/application/cart"
	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/logger"
	"github.com/farmstore/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockReader provides fresh stock snapshots
type StockReader interface {
	CurrentStock(ctx context.Context) (catalog.StockSnapshot, error)
}

// CartProvider returns the loaded cart store of a session
type CartProvider interface {
	Store(ctx context.Context, sessionID string) (*appcart.Store, error)
}

// SubmitRequest is one checkout attempt
type SubmitRequest struct {
	SessionID string
	// OrderID may be set by the client so a retried submission keeps its identity
	OrderID         uuid.UUID
	Customer        order.Customer
	Location        *order.GeoPoint
	LocationFailure order.GeoFailureReason
	Notes           string
	Channel         order.Channel
}

// SubmitResult describes how far a submission got.
// It is returned for rejected submissions too, so callers can inspect the trace.
type SubmitResult struct {
	Order             *order.Order
	State             order.SubmissionState
	Trace             []order.SubmissionState
	Queued            bool
	GeolocationNotice string
}

// Service turns a session's cart into an order
type Service struct {
	carts   CartProvider
	stock   StockReader
	queue   *OfflineQueue
	writer  *twoPhaseWriter
	logger  *zap.Logger
	metrics *telemetry.StoreMetrics

	mu       sync.Mutex
	sessions map[string]*sessionLock
}

// NewService creates a checkout service
func NewService(carts CartProvider, stock StockReader, repo order.Repository, queue *OfflineQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		carts:    carts,
		stock:    stock,
		queue:    queue,
		writer:   &twoPhaseWriter{repo: repo, logger: logger},
		logger:   logger,
		sessions: make(map[string]*sessionLock),
	}
}

// SetStoreMetrics sets the metrics collector
func (s *Service) SetStoreMetrics(m *telemetry.StoreMetrics) {
	s.metrics = m
}

// Submit validates the session's cart, writes it as an order and clears the cart.
// Submissions of one session run one at a time, and once started the write is
// not interrupted by ctx cancellation.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.SessionID == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Session ID is required")
	}
	release := s.lockSession(req.SessionID)
	defer release()

	start := time.Now()
	ctx = context.WithoutCancel(ctx)
	log := logger.WithLogger(ctx, s.logger)

	sub := order.NewSubmission()
	result := &SubmitResult{GeolocationNotice: geolocationNotice(req)}
	finish := func(o *order.Order, outcome string, err error) (*SubmitResult, error) {
		result.Order = o
		result.State = sub.State()
		result.Trace = sub.Trace()
		s.metrics.RecordCheckout(ctx, string(req.Channel), outcome, time.Since(start), result.totalOrZero())
		return result, err
	}

	store, err := s.carts.Store(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	c := store.Cart()
	details := order.Details{
		Customer: req.Customer,
		Location: req.Location,
		Notes:    req.Notes,
		Channel:  req.Channel,
	}

	_ = sub.To(order.StateValidating)
	reject := func(err error) (*SubmitResult, error) {
		_ = sub.To(order.StateRejected)
		log.Info("checkout rejected", zap.Error(err))
		return finish(nil, telemetry.OutcomeRejected, err)
	}

	if err := order.Validate(c, details); err != nil {
		return reject(err)
	}
	snap, err := s.stock.CurrentStock(ctx)
	if err != nil {
		return reject(err)
	}
	if err := order.CheckStock(c, snap); err != nil {
		return reject(err)
	}
	o, err := order.FromCart(req.OrderID, c, details)
	if err != nil {
		return reject(err)
	}
	if err := o.CheckTotal(); err != nil {
		return reject(err)
	}
	if !o.Total.Equal(c.Total()) {
		return reject(shared.ErrInvalidState.WithMessage("Order total does not match the cart"))
	}

	if snap.IsFallback() {
		return s.enqueue(ctx, log, sub, store, o, finish)
	}

	err = s.writer.write(ctx, sub, o)
	switch {
	case err == nil:
		if err := store.Clear(ctx); err != nil {
			log.Warn("failed to clear cart after commit", zap.String("order_id", o.ID.String()), zap.Error(err))
		}
		log.Info("order committed",
			zap.String("order_id", o.ID.String()),
			zap.String("channel", string(o.Channel)),
			zap.String("total", o.Total.String()),
		)
		return finish(o, telemetry.OutcomeCommitted, nil)
	case errors.Is(err, errBeforeWrite):
		log.Warn("store unreachable, keeping order offline", zap.String("order_id", o.ID.String()), zap.Error(err))
		return s.enqueue(ctx, log, sub, store, o, finish)
	case errors.Is(err, order.ErrOrphanedOrder):
		return finish(nil, telemetry.OutcomeOrphaned, err)
	default:
		log.Info("checkout rejected", zap.String("order_id", o.ID.String()), zap.Error(err))
		return finish(nil, telemetry.OutcomeRejected, err)
	}
}

func (s *Service) enqueue(
	ctx context.Context,
	log *logger.ContextLogger,
	sub *order.Submission,
	store *appcart.Store,
	o *order.Order,
	finish func(*order.Order, string, error) (*SubmitResult, error),
) (*SubmitResult, error) {
	o.Offline = true
	if err := s.queue.Append(ctx, store.SessionID(), o); err != nil {
		_ = sub.To(order.StateRejected)
		return finish(nil, telemetry.OutcomeFailed, order.ErrPersistenceFailure.Wrap(err))
	}
	if err := sub.To(order.StateQueued); err != nil {
		return finish(nil, telemetry.OutcomeFailed, err)
	}
	if err := store.Clear(ctx); err != nil {
		log.Warn("failed to clear cart after queueing", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
	s.metrics.RecordOfflineQueued(ctx, string(o.Channel))
	log.Info("order queued offline", zap.String("order_id", o.ID.String()))
	res, err := finish(o, telemetry.OutcomeQueued, nil)
	res.Queued = true
	return res, err
}

// sessionLock serializes the submissions of one session. It lives in the
// map only while a submission holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Service) lockSession(sessionID string) (release func()) {
	s.mu.Lock()
	l, ok := s.sessions[sessionID]
	if !ok {
		l = &sessionLock{}
		s.sessions[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.sessions, sessionID)
		}
		s.mu.Unlock()
	}
}

// activeSessions returns the number of sessions with a submission in progress
func (s *Service) activeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (r *SubmitResult) totalOrZero() decimal.Decimal {
	if r.Order == nil {
		return decimal.Zero
	}
	return r.Order.Total
}

func geolocationNotice(req SubmitRequest) string {
	if req.Location != nil || !req.LocationFailure.IsValid() {
		return ""
	}
	return req.LocationFailure.Notice()
}
