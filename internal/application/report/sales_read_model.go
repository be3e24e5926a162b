package report

import (
	"context"
	"time"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/report"
	"github.com/farmstore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Default list sizes of the dashboard snapshot
const (
	DefaultTopProductsLimit  = 5
	DefaultRecentOrdersLimit = 10
	TrendDays                = 7
)

// OrderSource is the read side of the order repository
type OrderSource interface {
	FindSince(ctx context.Context, since time.Time) ([]order.Order, error)
	FindRecent(ctx context.Context, limit int) ([]order.Order, error)
	SalesByProduct(ctx context.Context) ([]order.ProductSales, error)
}

// PendingSource lists orders that only exist locally
type PendingSource interface {
	Pending(ctx context.Context) ([]order.Order, error)
}

// WindowSummary is a sales summary plus whether it came from the backing store
type WindowSummary struct {
	report.SalesSummary
	Authoritative bool `json:"authoritative"`
}

// Limits bounds the lists of a Snapshot
type Limits struct {
	TopProducts  int
	RecentOrders int
}

// Snapshot is everything the dashboard shows, computed at one instant
type Snapshot struct {
	Summaries     []WindowSummary
	TopProducts   []report.ProductSalesRanking
	RecentOrders  []order.Order
	Trend         []report.DailySalesTrend
	Authoritative bool
	GeneratedAt   time.Time
}

// Summary returns the summary of w
func (s Snapshot) Summary(w report.Window) (WindowSummary, bool) {
	for _, ws := range s.Summaries {
		if ws.Window == w {
			return ws, true
		}
	}
	return WindowSummary{}, false
}

// Option configures a SalesReadModel
type Option func(*SalesReadModel)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(m *SalesReadModel) {
		m.now = now
	}
}

// WithLocation sets the location whose midnight starts a reporting day
func WithLocation(loc *time.Location) Option {
	return func(m *SalesReadModel) {
		m.loc = loc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *SalesReadModel) {
		m.logger = logger
	}
}

// SalesReadModel derives sales figures from committed orders. Nothing is
// cached; every query recomputes from the store. When the store cannot be
// reached the figures come from locally queued orders and are flagged as not
// authoritative.
type SalesReadModel struct {
	orders  OrderSource
	pending PendingSource
	now     func() time.Time
	loc     *time.Location
	logger  *zap.Logger
}

// NewSalesReadModel creates a read model. pending may be nil.
func NewSalesReadModel(orders OrderSource, pending PendingSource, opts ...Option) *SalesReadModel {
	m := &SalesReadModel{
		orders:  orders,
		pending: pending,
		now:     time.Now,
		loc:     time.Local,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SalesReadModel) clock() time.Time {
	return m.now().In(m.loc)
}

// Query summarizes the committed orders of window w
func (m *SalesReadModel) Query(ctx context.Context, w report.Window) (WindowSummary, error) {
	now := m.clock()
	start, _ := w.Bounds(now)

	orders, err := m.orders.FindSince(ctx, start)
	if err == nil {
		return WindowSummary{SalesSummary: report.Summarize(w, now, orders), Authoritative: true}, nil
	}
	if !shared.IsConnectivityError(err) {
		return WindowSummary{}, err
	}
	local := m.localOrders(ctx, err)
	return WindowSummary{SalesSummary: report.Summarize(w, now, local)}, nil
}

// TopProducts ranks products over every committed order. The store sums the
// lines; only local orders are totalled in memory.
func (m *SalesReadModel) TopProducts(ctx context.Context, limit int) ([]report.ProductSalesRanking, bool, error) {
	sales, err := m.orders.SalesByProduct(ctx)
	if err == nil {
		return report.RankSales(sales, limit), true, nil
	}
	if !shared.IsConnectivityError(err) {
		return nil, false, err
	}
	return report.RankProducts(linesOf(m.localOrders(ctx, err)), limit), false, nil
}

// RecentOrders returns the newest committed orders first
func (m *SalesReadModel) RecentOrders(ctx context.Context, limit int) ([]order.Order, bool, error) {
	orders, err := m.orders.FindRecent(ctx, limit)
	if err == nil {
		return orders, true, nil
	}
	if !shared.IsConnectivityError(err) {
		return nil, false, err
	}
	return report.RecentOrders(m.localOrders(ctx, err), limit), false, nil
}

// Snapshot computes every window, the rankings, the recent orders and the
// daily trend in one pass
func (m *SalesReadModel) Snapshot(ctx context.Context, limits Limits) (Snapshot, error) {
	if limits.TopProducts <= 0 {
		limits.TopProducts = DefaultTopProductsLimit
	}
	if limits.RecentOrders <= 0 {
		limits.RecentOrders = DefaultRecentOrdersLimit
	}
	now := m.clock()

	orders, sales, recent, err := m.load(ctx, now, limits.RecentOrders)
	authoritative := err == nil
	var top []report.ProductSalesRanking
	if err != nil {
		if !shared.IsConnectivityError(err) {
			return Snapshot{}, err
		}
		orders = m.localOrders(ctx, err)
		top = report.RankProducts(linesOf(orders), limits.TopProducts)
		recent = report.RecentOrders(orders, limits.RecentOrders)
	} else {
		top = report.RankSales(sales, limits.TopProducts)
	}

	snap := Snapshot{
		TopProducts:   top,
		RecentOrders:  recent,
		Trend:         report.DailyTrend(now, TrendDays, orders),
		Authoritative: authoritative,
		GeneratedAt:   now,
	}
	for _, w := range report.Windows {
		snap.Summaries = append(snap.Summaries, WindowSummary{
			SalesSummary:  report.Summarize(w, now, orders),
			Authoritative: authoritative,
		})
	}
	return snap, nil
}

func (m *SalesReadModel) load(ctx context.Context, now time.Time, recentLimit int) ([]order.Order, []order.ProductSales, []order.Order, error) {
	orders, err := m.orders.FindSince(ctx, earliestStart(now))
	if err != nil {
		return nil, nil, nil, err
	}
	sales, err := m.orders.SalesByProduct(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	recent, err := m.orders.FindRecent(ctx, recentLimit)
	if err != nil {
		return nil, nil, nil, err
	}
	return orders, sales, recent, nil
}

func (m *SalesReadModel) localOrders(ctx context.Context, cause error) []order.Order {
	m.logger.Warn("store unreachable, sales figures from local orders", zap.Error(cause))
	if m.pending == nil {
		return nil
	}
	orders, err := m.pending.Pending(ctx)
	if err != nil {
		m.logger.Warn("failed to read local orders", zap.Error(err))
		return nil
	}
	return orders
}

func earliestStart(now time.Time) time.Time {
	earliest, _ := report.WindowToday.Bounds(now)
	earliest = earliest.AddDate(0, 0, -(TrendDays - 1))
	for _, w := range report.Windows {
		if start, _ := w.Bounds(now); start.Before(earliest) {
			earliest = start
		}
	}
	return earliest
}

func linesOf(orders []order.Order) []order.OrderLine {
	var lines []order.OrderLine
	for _, o := range orders {
		lines = append(lines, o.Lines...)
	}
	return lines
}
