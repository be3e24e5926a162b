package catalog

import (
	"context"
	"slices"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockLedger serves point-in-time stock snapshots.
// The backing store is tried first; when it is unreachable the built-in
// catalog answers instead. Nothing is cached, every call re-fetches.
type StockLedger struct {
	chain   *shared.ProviderChain[[]catalog.Product]
	logger  *zap.Logger
	metrics *telemetry.StoreMetrics
}

// NewStockLedger creates a ledger over repo with the built-in catalog as fallback
func NewStockLedger(repo catalog.ProductRepository, logger *zap.Logger) *StockLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewStockLedgerWithProviders(logger,
		shared.Provider[[]catalog.Product]{Name: catalog.SourceStore, Fetch: repo.FindAll},
		StaticProvider(catalog.BuiltinCatalog()),
	)
}

// NewStockLedgerWithProviders creates a ledger over an explicit provider order
func NewStockLedgerWithProviders(logger *zap.Logger, providers ...shared.Provider[[]catalog.Product]) *StockLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockLedger{
		chain:  shared.NewProviderChain(providers...),
		logger: logger,
	}
}

// SetStoreMetrics sets the metrics collector
func (l *StockLedger) SetStoreMetrics(m *telemetry.StoreMetrics) {
	l.metrics = m
}

// CurrentStock returns a fresh snapshot tagged with the source that produced it
func (l *StockLedger) CurrentStock(ctx context.Context) (catalog.StockSnapshot, error) {
	products, source, err := l.chain.Fetch(ctx)
	if err != nil {
		return catalog.StockSnapshot{}, err
	}
	if source != catalog.SourceStore {
		l.logger.Warn("stock served from fallback source", zap.String("source", source))
	}
	l.metrics.RecordStockRead(ctx, source)
	return catalog.NewStockSnapshot(products, source), nil
}

// Product looks id up on a fresh snapshot
func (l *StockLedger) Product(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	snap, err := l.CurrentStock(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	p, ok := snap.Product(id)
	if !ok {
		return catalog.Product{}, shared.ErrNotFound.WithMessage("Product not found").WithDetail("product_id", id.String())
	}
	return p, nil
}

// StaticProvider answers with a copy of products under the static source name
func StaticProvider(products []catalog.Product) shared.Provider[[]catalog.Product] {
	fixed := slices.Clone(products)
	return shared.Provider[[]catalog.Product]{
		Name: catalog.SourceStatic,
		Fetch: func(context.Context) ([]catalog.Product, error) {
			return slices.Clone(fixed), nil
		},
	}
}
