package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock sources reported by a snapshot
const (
	SourceStore  = "store"
	SourceStatic = "static"
)

// StockSnapshot is a point-in-time view of per-product availability.
// It is never updated in place; re-fetch it before trusting it for a submission.
type StockSnapshot struct {
	Products []Product
	Source   string
	TakenAt  time.Time

	index map[uuid.UUID]int
}

// NewStockSnapshot builds a snapshot over products
func NewStockSnapshot(products []Product, source string) StockSnapshot {
	idx := make(map[uuid.UUID]int, len(products))
	for i := range products {
		idx[products[i].ID] = i
	}
	return StockSnapshot{
		Products: products,
		Source:   source,
		TakenAt:  time.Now(),
		index:    idx,
	}
}

// Product returns the product with id
func (s StockSnapshot) Product(id uuid.UUID) (Product, bool) {
	i, ok := s.index[id]
	if !ok {
		return Product{}, false
	}
	return s.Products[i], true
}

// Available returns the available quantity for id, zero for unknown products
func (s StockSnapshot) Available(id uuid.UUID) decimal.Decimal {
	p, ok := s.Product(id)
	if !ok {
		return decimal.Zero
	}
	return p.AvailableQuantity
}

// IsFallback returns true when the snapshot did not come from the backing store
func (s StockSnapshot) IsFallback() bool {
	return s.Source != SourceStore
}
