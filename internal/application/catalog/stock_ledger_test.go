package catalog

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

var errRefused = &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

func storeProduct(name string, available string) catalog.Product {
	return catalog.Product{
		BaseEntity:        shared.NewBaseEntity(),
		Code:              "P-" + name,
		Name:              name,
		Unit:              "kg",
		Price:             decimal.NewFromInt(1000),
		AvailableQuantity: decimal.RequireFromString(available),
	}
}

func TestStockLedger_CurrentStock(t *testing.T) {
	ctx := context.Background()

	t.Run("store snapshot", func(t *testing.T) {
		repo := new(MockProductRepository)
		p := storeProduct("Tomates", "3")
		repo.On("FindAll", ctx).Return([]catalog.Product{p}, nil).Once()

		snap, err := NewStockLedger(repo, nil).CurrentStock(ctx)
		require.NoError(t, err)
		assert.Equal(t, catalog.SourceStore, snap.Source)
		assert.False(t, snap.IsFallback())
		assert.True(t, snap.Available(p.ID).Equal(decimal.NewFromInt(3)))
		repo.AssertExpectations(t)
	})

	t.Run("falls back to builtin catalog when store is unreachable", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("FindAll", ctx).Return(nil, shared.ErrUnavailable.Wrap(errRefused))

		snap, err := NewStockLedger(repo, nil).CurrentStock(ctx)
		require.NoError(t, err)
		assert.Equal(t, catalog.SourceStatic, snap.Source)
		assert.True(t, snap.IsFallback())
		assert.Len(t, snap.Products, len(catalog.BuiltinCatalog()))
	})

	t.Run("non connectivity errors are returned", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("FindAll", ctx).Return(nil, errors.New("syntax error at or near"))

		_, err := NewStockLedger(repo, nil).CurrentStock(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "syntax error")
	})

	t.Run("re-fetches on every call", func(t *testing.T) {
		repo := new(MockProductRepository)
		p := storeProduct("Oignons", "5")
		repo.On("FindAll", ctx).Return([]catalog.Product{p}, nil).Once()
		after := p
		after.AvailableQuantity = decimal.NewFromInt(2)
		repo.On("FindAll", ctx).Return([]catalog.Product{after}, nil).Once()

		ledger := NewStockLedger(repo, nil)
		first, err := ledger.CurrentStock(ctx)
		require.NoError(t, err)
		second, err := ledger.CurrentStock(ctx)
		require.NoError(t, err)

		assert.True(t, first.Available(p.ID).Equal(decimal.NewFromInt(5)))
		assert.True(t, second.Available(p.ID).Equal(decimal.NewFromInt(2)))
		repo.AssertNumberOfCalls(t, "FindAll", 2)
	})
}

func TestStockLedger_Product(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	p := storeProduct("Mangues", "7.5")
	repo.On("FindAll", ctx).Return([]catalog.Product{p}, nil)
	ledger := NewStockLedger(repo, nil)

	got, err := ledger.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mangues", got.Name)

	_, err = ledger.Product(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStockLedger_ConfiguredStaticCatalog(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	repo.On("FindAll", ctx).Return(nil, errRefused)
	configured := []catalog.Product{storeProduct("Bissap", "3")}

	ledger := NewStockLedgerWithProviders(nil,
		shared.Provider[[]catalog.Product]{Name: catalog.SourceStore, Fetch: repo.FindAll},
		StaticProvider(configured),
	)
	snap, err := ledger.CurrentStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.SourceStatic, snap.Source)
	assert.True(t, snap.Available(configured[0].ID).Equal(decimal.NewFromInt(3)))

	// callers cannot alter the configured catalog through a snapshot
	configured[0].AvailableQuantity = decimal.Zero
	snap, err = ledger.CurrentStock(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Available(configured[0].ID).Equal(decimal.NewFromInt(3)))
}
