package cart

import (
	"slices"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultStep is the quantity increment used by the storefront
var DefaultStep = decimal.RequireFromString("0.5")

var (
	ErrInvalidStep     = shared.NewDomainError("INVALID_STEP", "Step must be a positive multiple of the cart step")
	ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be a multiple of the cart step")
	ErrCorruptCart     = shared.NewDomainError("CORRUPT_CART", "Stored cart is not valid")
)

// Line is one product in the cart. Name, Unit and UnitPrice are copied from the
// product when the line was last changed.
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Total returns quantity times unit price
func (l Line) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Cart is an ordered set of lines, unique by product.
// Every line quantity is positive and an exact multiple of the step.
type Cart struct {
	step  decimal.Decimal
	lines []Line
}

// New creates an empty cart
func New(step decimal.Decimal) (*Cart, error) {
	if !step.IsPositive() {
		return nil, ErrInvalidStep
	}
	return &Cart{step: step}, nil
}

// Restore rebuilds a cart from persisted lines, rejecting anything that breaks
// the cart invariants. Availability is not checked here.
func Restore(step decimal.Decimal, lines []Line) (*Cart, error) {
	c, err := New(step)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID == uuid.Nil || !l.Quantity.IsPositive() || !c.isMultiple(l.Quantity) || l.UnitPrice.IsNegative() {
			return nil, ErrCorruptCart.WithDetail("product_id", l.ProductID.String())
		}
		if _, dup := seen[l.ProductID]; dup {
			return nil, ErrCorruptCart.WithDetail("product_id", l.ProductID.String())
		}
		seen[l.ProductID] = struct{}{}
		c.lines = append(c.lines, l)
	}
	return c, nil
}

// Step returns the configured quantity step
func (c *Cart) Step() decimal.Decimal {
	return c.step
}

// Add increases the line for product by step.
// It is a no-op returning false when the result would exceed the product's
// available quantity; the ledger may be stale so this is not an error.
func (c *Cart) Add(product catalog.Product, step decimal.Decimal) (bool, error) {
	if err := c.checkStep(step); err != nil {
		return false, err
	}

	i := c.indexOf(product.ID)
	current := decimal.Zero
	if i >= 0 {
		current = c.lines[i].Quantity
	}
	next := current.Add(step)
	if !product.CanSupply(next) {
		return false, nil
	}

	c.put(i, product, next)
	return true, nil
}

// Remove decreases the line for productID by step, deleting it at zero or below.
// Returns false if the product was not in the cart.
func (c *Cart) Remove(productID uuid.UUID, step decimal.Decimal) (bool, error) {
	if err := c.checkStep(step); err != nil {
		return false, err
	}

	i := c.indexOf(productID)
	if i < 0 {
		return false, nil
	}
	next := c.lines[i].Quantity.Sub(step)
	if !next.IsPositive() {
		c.lines = slices.Delete(c.lines, i, i+1)
		return true, nil
	}
	c.lines[i].Quantity = next
	return true, nil
}

// SetLine sets the quantity for product. A quantity at or below zero deletes the line.
// Like Add, a quantity above the available stock is a no-op returning false.
func (c *Cart) SetLine(product catalog.Product, quantity decimal.Decimal) (bool, error) {
	i := c.indexOf(product.ID)
	if !quantity.IsPositive() {
		if i < 0 {
			return false, nil
		}
		c.lines = slices.Delete(c.lines, i, i+1)
		return true, nil
	}
	if !c.isMultiple(quantity) {
		return false, ErrInvalidQuantity.WithDetail("step", c.step.String())
	}
	if !product.CanSupply(quantity) {
		return false, nil
	}

	c.put(i, product, quantity)
	return true, nil
}

// Clear removes every line
func (c *Cart) Clear() {
	c.lines = nil
}

// Total is the sum of quantity times price over all lines. Always recomputed.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Lines returns a copy of the lines in insertion order
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

// Line returns the line for productID
func (c *Cart) Line(productID uuid.UUID) (Line, bool) {
	i := c.indexOf(productID)
	if i < 0 {
		return Line{}, false
	}
	return c.lines[i], true
}

// Quantity returns the quantity in the cart for productID
func (c *Cart) Quantity(productID uuid.UUID) decimal.Decimal {
	l, ok := c.Line(productID)
	if !ok {
		return decimal.Zero
	}
	return l.Quantity
}

// IsEmpty returns true if the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Len returns the number of lines
func (c *Cart) Len() int {
	return len(c.lines)
}

// ItemCount returns the sum of all line quantities
func (c *Cart) ItemCount() decimal.Decimal {
	n := decimal.Zero
	for _, l := range c.lines {
		n = n.Add(l.Quantity)
	}
	return n
}

func (c *Cart) put(i int, product catalog.Product, quantity decimal.Decimal) {
	line := Line{
		ProductID: product.ID,
		Name:      product.Name,
		Unit:      product.Unit,
		UnitPrice: product.Price,
		Quantity:  quantity,
	}
	if i < 0 {
		c.lines = append(c.lines, line)
		return
	}
	c.lines[i] = line
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.ProductID == productID })
}

func (c *Cart) checkStep(step decimal.Decimal) error {
	if !step.IsPositive() || !c.isMultiple(step) {
		return ErrInvalidStep.WithDetail("step", step.String())
	}
	return nil
}

func (c *Cart) isMultiple(q decimal.Decimal) bool {
	return q.Mod(c.step).IsZero()
}
