package order

import (
	"github.com/farmstore/backend/internal/domain/cart"
	"github.com/farmstore/backend/internal/domain/catalog"
)

// CheckStock rejects the first cart line whose quantity exceeds the snapshot.
// Products missing from the snapshot count as out of stock.
func CheckStock(c *cart.Cart, snap catalog.StockSnapshot) error {
	for _, l := range c.Lines() {
		available := snap.Available(l.ProductID)
		if l.Quantity.GreaterThan(available) {
			name := l.Name
			if p, ok := snap.Product(l.ProductID); ok {
				name = p.Name
			}
			return InsufficientStock(l.ProductID, name, l.Quantity, available)
		}
	}
	return nil
}
