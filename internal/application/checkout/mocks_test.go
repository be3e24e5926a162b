package checkout

import (
	"context"
	"net"
	"syscall"
	"testing"
	"time"

	appcart "github.com/farmstore/backend/internal/application/cart"
	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateLines(ctx context.Context, orderID uuid.UUID, lines []order.OrderLine) error {
	args := m.Called(ctx, orderID, lines)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindSince(ctx context.Context, since time.Time) ([]order.Order, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindRecent(ctx context.Context, limit int) ([]order.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) SalesByProduct(ctx context.Context) ([]order.ProductSales, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.ProductSales), args.Error(1)
}

// fixedStock serves the same snapshot on every call
type fixedStock struct {
	products []catalog.Product
	source   string
	err      error
}

func (f *fixedStock) CurrentStock(context.Context) (catalog.StockSnapshot, error) {
	if f.err != nil {
		return catalog.StockSnapshot{}, f.err
	}
	return catalog.NewStockSnapshot(f.products, f.source), nil
}

var (
	half       = decimal.RequireFromString("0.5")
	errRefused = &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
)

func product(name string, price int64, available string) catalog.Product {
	return catalog.Product{
		BaseEntity:        shared.NewBaseEntity(),
		Code:              "P-" + name[:3],
		Name:              name,
		Unit:              "kg",
		Price:             decimal.NewFromInt(price),
		AvailableQuantity: decimal.RequireFromString(available),
	}
}

// fill adds product to the session cart n times by the default step
func fill(t *testing.T, carts *appcart.Manager, session string, p catalog.Product, n int) {
	t.Helper()
	store, err := carts.Store(context.Background(), session)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		ok, err := store.Add(context.Background(), p, half)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func newCarts() (*appcart.Manager, *storage.MemoryStore) {
	kv := storage.NewMemoryStore()
	return appcart.NewManager(half, kv, nil), kv
}
