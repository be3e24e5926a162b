package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the row-oriented view of the orders and order_items tables.
// Writes are deliberately split so the caller controls the two-phase protocol.
//
// An order counts as committed once it has at least one line; queries only
// return committed orders.
type Repository interface {
	// CreateOrder inserts the order row without lines
	CreateOrder(ctx context.Context, o *Order) error

	// CreateLines inserts all lines of an order and decrements product stock in one
	// store transaction. A line whose quantity exceeds the stored availability
	// fails with ErrInsufficientStock and nothing is written.
	CreateLines(ctx context.Context, orderID uuid.UUID, lines []OrderLine) error

	// DeleteOrder removes an order row. Used to compensate a failed line write.
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	// Exists reports whether an order row with id exists, committed or not
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// FindByID returns a committed order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindSince returns committed orders created at or after since, with lines
	FindSince(ctx context.Context, since time.Time) ([]Order, error)

	// FindRecent returns the newest committed orders first, with lines
	FindRecent(ctx context.Context, limit int) ([]Order, error)

	// SalesByProduct sums quantity and revenue per product over every
	// committed order. Row order is unspecified.
	SalesByProduct(ctx context.Context) ([]ProductSales, error)
}

// ProductSales is the all-time volume of one product. ProductName is the name
// on the product's most recent line.
type ProductSales struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	Amount      decimal.Decimal
}
