package catalog

import (
	"strings"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable farm product.
// Everything but AvailableQuantity is fixed for the duration of a session;
// AvailableQuantity changes only when the backing store commits an order.
type Product struct {
	shared.BaseEntity
	Code              string
	Name              string
	Category          string
	Unit              string          // kg, botte, plateau, litre...
	Price             decimal.Decimal // whole currency units per Unit
	AvailableQuantity decimal.Decimal
}

// productNamespace scopes ids derived from product codes
var productNamespace = uuid.MustParse("3d0f6c52-1b7e-4f5e-9c1a-6a2f4e8b7d90")

// IDFromCode returns the id a product gets when its catalog entry has none.
// The same code always yields the same id, so carts and the static fallback
// keep matching the store across restarts.
func IDFromCode(code string) uuid.UUID {
	return uuid.NewSHA1(productNamespace, []byte(strings.ToUpper(code)))
}

// NewProduct creates a new product
func NewProduct(code, name, category, unit string, price, available decimal.Decimal) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateUnit(unit); err != nil {
		return nil, err
	}
	if price.IsNegative() || !price.Equal(price.Truncate(0)) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price must be a non-negative whole amount")
	}
	if available.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Available quantity cannot be negative")
	}

	return &Product{
		BaseEntity:        shared.NewBaseEntity(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Category:          category,
		Unit:              unit,
		Price:             price,
		AvailableQuantity: available,
	}, nil
}

// InStock returns true if any quantity is available
func (p *Product) InStock() bool {
	return p.AvailableQuantity.IsPositive()
}

// CanSupply returns true if quantity does not exceed what is available
func (p *Product) CanSupply(quantity decimal.Decimal) bool {
	return quantity.LessThanOrEqual(p.AvailableQuantity)
}

func validateProductCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Product code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateUnit(unit string) error {
	if unit == "" {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}
	if len(unit) > 20 {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot exceed 20 characters")
	}
	return nil
}
