package order

import (
	"errors"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Checkout signals. Validation signals are raised before any write; persistence
// signals during the two-phase write.
var (
	ErrEmptyCart           = shared.NewDomainError("EMPTY_CART", "Cart is empty")
	ErrMissingCustomerInfo = shared.NewDomainError("MISSING_CUSTOMER_INFO", "Customer name and phone are required")
	ErrInsufficientStock   = shared.ErrInsufficientStock
	ErrPersistenceFailure  = shared.NewDomainError("PERSISTENCE_FAILURE", "Order could not be saved")
	ErrOrphanedOrder       = shared.NewDomainError("ORPHANED_ORDER", "Order saved without lines and could not be removed")
	ErrOrderNotFound       = shared.ErrNotFound.WithMessage("Order not found")
)

// InsufficientStock names the product whose requested quantity exceeds availability
func InsufficientStock(productID uuid.UUID, name string, requested, available decimal.Decimal) *shared.DomainError {
	return ErrInsufficientStock.
		WithMessage("Insufficient stock for "+name).
		WithDetail("product_id", productID.String()).
		WithDetail("product_name", name).
		WithDetail("requested", requested.String()).
		WithDetail("available", available.String())
}

// OrphanedOrder reports an order row left without lines after compensation failed
func OrphanedOrder(orderID uuid.UUID, lineErr, deleteErr error) *shared.DomainError {
	return ErrOrphanedOrder.
		WithDetail("order_id", orderID.String()).
		WithDetail("reason", deleteErr.Error()).
		Wrap(lineErr)
}

// IsValidation reports whether err is a validation signal
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrMissingCustomerInfo) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, shared.ErrInvalidInput)
}
