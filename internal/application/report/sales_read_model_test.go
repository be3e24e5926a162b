package report

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/report"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderSource is a mock implementation of OrderSource
type MockOrderSource struct {
	mock.Mock
}

func (m *MockOrderSource) FindSince(ctx context.Context, since time.Time) ([]order.Order, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderSource) FindRecent(ctx context.Context, limit int) ([]order.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderSource) SalesByProduct(ctx context.Context) ([]order.ProductSales, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.ProductSales), args.Error(1)
}

type stubPending struct {
	orders []order.Order
	err    error
}

func (s stubPending) Pending(context.Context) ([]order.Order, error) {
	return s.orders, s.err
}

var (
	dakar      = time.FixedZone("GMT", 0)
	fixedNow   = time.Date(2026, 3, 18, 15, 0, 0, 0, dakar)
	errRefused = &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	tomatoID   = uuid.New()
	chickenID  = uuid.New()
)

func sale(created time.Time, lines ...order.OrderLine) order.Order {
	o := order.Order{
		BaseEntity: shared.BaseEntity{ID: uuid.New(), CreatedAt: created},
		Status:     order.StatusCompleted,
		Channel:    order.ChannelCaisse,
	}
	for _, l := range lines {
		l.OrderID = o.ID
		o.Lines = append(o.Lines, l)
	}
	o.Total = o.LinesTotal()
	return o
}

func saleLine(productID uuid.UUID, name string, qty string, price int64) order.OrderLine {
	q := decimal.RequireFromString(qty)
	p := decimal.NewFromInt(price)
	return order.OrderLine{ID: uuid.New(), ProductID: productID, ProductName: name, Quantity: q, UnitPrice: p, LineTotal: q.Mul(p)}
}

func newReadModel(src OrderSource, pending PendingSource) *SalesReadModel {
	return NewSalesReadModel(src, pending,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(dakar),
	)
}

func TestSalesReadModel_Query(t *testing.T) {
	ctx := context.Background()
	src := new(MockOrderSource)
	morning := fixedNow.Add(-5 * time.Hour)
	yesterday := fixedNow.AddDate(0, 0, -1)
	orders := []order.Order{
		sale(yesterday, saleLine(tomatoID, "Tomates", "2", 1500)),
		sale(morning, saleLine(tomatoID, "Tomates", "1", 1500), saleLine(chickenID, "Poulet fermier", "1", 4500)),
	}
	midnight := time.Date(2026, 3, 18, 0, 0, 0, 0, dakar)
	src.On("FindSince", ctx, midnight).Return(orders, nil)

	got, err := newReadModel(src, nil).Query(ctx, report.WindowToday)
	require.NoError(t, err)
	assert.True(t, got.Authoritative)
	assert.Equal(t, int64(1), got.TotalOrders)
	assert.True(t, got.TotalSalesAmount.Equal(decimal.NewFromInt(6000)))
	assert.True(t, got.ItemsSold.Equal(decimal.NewFromInt(2)))
	assert.True(t, got.AvgOrderValue.Equal(decimal.NewFromInt(6000)))
	src.AssertExpectations(t)
}

func TestSalesReadModel_QueryNeverCaches(t *testing.T) {
	ctx := context.Background()
	src := new(MockOrderSource)
	first := []order.Order{sale(fixedNow, saleLine(tomatoID, "Tomates", "1", 1500))}
	second := append(first, sale(fixedNow, saleLine(tomatoID, "Tomates", "1", 1500)))
	src.On("FindSince", ctx, mock.Anything).Return(first, nil).Once()
	src.On("FindSince", ctx, mock.Anything).Return(second, nil).Once()

	m := newReadModel(src, nil)
	a, err := m.Query(ctx, report.WindowMonth)
	require.NoError(t, err)
	b, err := m.Query(ctx, report.WindowMonth)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.TotalOrders)
	assert.Equal(t, int64(2), b.TotalOrders)
}

func TestSalesReadModel_FallsBackToLocalOrders(t *testing.T) {
	ctx := context.Background()
	src := new(MockOrderSource)
	down := shared.ErrUnavailable.Wrap(errRefused)
	src.On("FindSince", ctx, mock.Anything).Return(nil, down)
	src.On("SalesByProduct", ctx).Return(nil, down)
	src.On("FindRecent", ctx, mock.Anything).Return(nil, down)

	local := sale(fixedNow.Add(-time.Hour), saleLine(chickenID, "Poulet fermier", "2", 4500))
	local.Offline = true
	m := newReadModel(src, stubPending{orders: []order.Order{local}})

	summary, err := m.Query(ctx, report.WindowToday)
	require.NoError(t, err)
	assert.False(t, summary.Authoritative)
	assert.True(t, summary.TotalSalesAmount.Equal(decimal.NewFromInt(9000)))

	top, authoritative, err := m.TopProducts(ctx, 5)
	require.NoError(t, err)
	assert.False(t, authoritative)
	require.Len(t, top, 1)
	assert.Equal(t, chickenID, top[0].ProductID)

	recent, authoritative, err := m.RecentOrders(ctx, 10)
	require.NoError(t, err)
	assert.False(t, authoritative)
	assert.Len(t, recent, 1)

	snap, err := m.Snapshot(ctx, Limits{})
	require.NoError(t, err)
	assert.False(t, snap.Authoritative)
	for _, ws := range snap.Summaries {
		assert.False(t, ws.Authoritative)
	}
}

func TestSalesReadModel_FallbackWithoutLocalOrders(t *testing.T) {
	ctx := context.Background()
	src := new(MockOrderSource)
	src.On("FindSince", ctx, mock.Anything).Return(nil, shared.ErrUnavailable)

	got, err := newReadModel(src, stubPending{err: errors.New("disk gone")}).Query(ctx, report.WindowLast7Days)
	require.NoError(t, err)
	assert.False(t, got.Authoritative, "an empty local result is never presented as authoritative")
	assert.Zero(t, got.TotalOrders)
}

func TestSalesReadModel_OtherErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	src := new(MockOrderSource)
	src.On("FindSince", ctx, mock.Anything).Return(nil, errors.New("malformed row"))

	_, err := newReadModel(src, nil).Query(ctx, report.WindowToday)
	assert.EqualError(t, err, "malformed row")

	_, err = newReadModel(src, nil).Snapshot(ctx, Limits{})
	assert.Error(t, err)
}

func TestSalesReadModel_TopProducts(t *testing.T) {
	ctx := context.Background()
	src := new(MockOrderSource)
	eggID := uuid.New()
	src.On("SalesByProduct", ctx).Return([]order.ProductSales{
		{ProductID: eggID, ProductName: "Œufs", Quantity: decimal.NewFromInt(1), Amount: decimal.NewFromInt(3000)},
		{ProductID: chickenID, ProductName: "Poulet fermier", Quantity: decimal.NewFromInt(1), Amount: decimal.NewFromInt(4500)},
		{ProductID: tomatoID, ProductName: "Tomates", Quantity: decimal.NewFromInt(3), Amount: decimal.NewFromInt(4500)},
	}, nil)

	top, authoritative, err := newReadModel(src, nil).TopProducts(ctx, 2)
	require.NoError(t, err)
	assert.True(t, authoritative)
	require.Len(t, top, 2)
	assert.Equal(t, tomatoID, top[0].ProductID)
	assert.Equal(t, 1, top[0].Rank)
	assert.True(t, top[0].TotalAmount.Equal(decimal.NewFromInt(4500)))
	assert.Equal(t, chickenID, top[1].ProductID, "equal revenue ranks by quantity")
}

func TestSalesReadModel_Snapshot(t *testing.T) {
	ctx := context.Background()
	src := new(MockOrderSource)
	orders := []order.Order{
		sale(time.Date(2026, 3, 2, 10, 0, 0, 0, dakar), saleLine(tomatoID, "Tomates", "10", 1500)),
		sale(fixedNow.AddDate(0, 0, -3), saleLine(chickenID, "Poulet fermier", "2", 4500)),
		sale(fixedNow.Add(-time.Hour), saleLine(tomatoID, "Tomates", "1", 1500)),
	}
	src.On("FindSince", ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, dakar)).Return(orders, nil)
	src.On("SalesByProduct", ctx).Return([]order.ProductSales{
		{ProductID: tomatoID, ProductName: "Tomates", Quantity: decimal.NewFromInt(11), Amount: decimal.NewFromInt(16500)},
		{ProductID: chickenID, ProductName: "Poulet fermier", Quantity: decimal.NewFromInt(2), Amount: decimal.NewFromInt(9000)},
	}, nil)
	src.On("FindRecent", ctx, 3).Return([]order.Order{orders[2], orders[1], orders[0]}, nil)

	snap, err := newReadModel(src, nil).Snapshot(ctx, Limits{TopProducts: 5, RecentOrders: 3})
	require.NoError(t, err)
	assert.True(t, snap.Authoritative)
	assert.Equal(t, fixedNow, snap.GeneratedAt)
	require.Len(t, snap.Summaries, 3)

	today, ok := snap.Summary(report.WindowToday)
	require.True(t, ok)
	assert.True(t, today.TotalSalesAmount.Equal(decimal.NewFromInt(1500)))
	week, _ := snap.Summary(report.WindowLast7Days)
	assert.True(t, week.TotalSalesAmount.Equal(decimal.NewFromInt(10500)))
	month, _ := snap.Summary(report.WindowMonth)
	assert.True(t, month.TotalSalesAmount.Equal(decimal.NewFromInt(25500)))
	assert.Equal(t, int64(3), month.TotalOrders)

	require.Len(t, snap.Trend, TrendDays)
	assert.True(t, snap.Trend[TrendDays-1].TotalAmount.Equal(decimal.NewFromInt(1500)))
	assert.Len(t, snap.RecentOrders, 3)
	assert.Equal(t, tomatoID, snap.TopProducts[0].ProductID)
	src.AssertExpectations(t)
}

func TestEarliestStart(t *testing.T) {
	early := time.Date(2026, 3, 3, 9, 0, 0, 0, dakar)
	assert.Equal(t, time.Date(2026, 2, 25, 0, 0, 0, 0, dakar), earliestStart(early), "the trend reaches into the previous month")
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, dakar), earliestStart(fixedNow))
}
