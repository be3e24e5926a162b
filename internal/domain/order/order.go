package order

import (
	"strings"
	"time"

	"github.com/farmstore/backend/internal/domain/cart"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Channel is where the order was taken
type Channel string

const (
	// ChannelStorefront orders are placed online and delivered later
	ChannelStorefront Channel = "storefront"
	// ChannelCaisse sales are rung up at the point of sale and settled immediately
	ChannelCaisse Channel = "caisse"
)

// IsValid checks if the channel is valid
func (c Channel) IsValid() bool {
	return c == ChannelStorefront || c == ChannelCaisse
}

// InitialStatus returns the status an order taken on this channel starts with
func (c Channel) InitialStatus() Status {
	if c == ChannelCaisse {
		return StatusCompleted
	}
	return StatusPending
}

// Customer holds contact and delivery details
type Customer struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Quartier string `json:"quartier,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Normalize trims surrounding whitespace from every field
func (c Customer) Normalize() Customer {
	return Customer{
		Name:     strings.TrimSpace(c.Name),
		Phone:    strings.TrimSpace(c.Phone),
		Quartier: strings.TrimSpace(c.Quartier),
		Address:  strings.TrimSpace(c.Address),
	}
}

// Order is a committed purchase with frozen line items
type Order struct {
	shared.BaseEntity
	Customer Customer
	Location *GeoPoint
	Notes    string
	Total    decimal.Decimal
	Status   Status
	Channel  Channel
	Offline  bool // recorded locally while the backing store was unreachable
	Lines    []OrderLine
}

// OrderLine is a frozen copy of one product's quantity and price at order time.
// It never refers back to live product state.
type OrderLine struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Details carries the customer-supplied part of an order
type Details struct {
	Customer Customer
	Location *GeoPoint
	Notes    string
	Channel  Channel
}

// FromCart freezes the cart into a new order. id may be uuid.Nil to generate one;
// a caller-assigned id lets offline orders be replayed idempotently.
func FromCart(id uuid.UUID, c *cart.Cart, d Details) (*Order, error) {
	if err := Validate(c, d); err != nil {
		return nil, err
	}
	if d.Location != nil {
		if err := d.Location.Validate(); err != nil {
			return nil, err
		}
	}

	o := &Order{
		BaseEntity: shared.NewBaseEntityWithID(id),
		Customer:   d.Customer.Normalize(),
		Location:   d.Location,
		Notes:      strings.TrimSpace(d.Notes),
		Status:     d.Channel.InitialStatus(),
		Channel:    d.Channel,
	}
	for _, l := range c.Lines() {
		o.Lines = append(o.Lines, OrderLine{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.Total(),
		})
	}
	o.Total = o.LinesTotal()
	return o, nil
}

// Validate checks the cart and customer details before anything is written
func Validate(c *cart.Cart, d Details) error {
	if !d.Channel.IsValid() {
		return shared.ErrInvalidInput.WithMessage("Unknown sales channel").WithDetail("channel", string(d.Channel))
	}
	if c == nil || c.IsEmpty() {
		return ErrEmptyCart
	}
	cust := d.Customer.Normalize()
	if d.Channel == ChannelStorefront {
		var missing []string
		if cust.Name == "" {
			missing = append(missing, "name")
		}
		if cust.Phone == "" {
			missing = append(missing, "phone")
		}
		if len(missing) > 0 {
			return ErrMissingCustomerInfo.WithDetail("fields", missing)
		}
	}
	return nil
}

// LinesTotal returns the sum of line totals
func (o *Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// CheckTotal verifies that the order total matches its lines and every line
// total matches quantity times unit price
func (o *Order) CheckTotal() error {
	for _, l := range o.Lines {
		if !l.LineTotal.Equal(l.Quantity.Mul(l.UnitPrice)) {
			return shared.ErrInvalidState.WithMessage("Line total does not match quantity and price").
				WithDetail("product_id", l.ProductID.String())
		}
	}
	if !o.Total.Equal(o.LinesTotal()) {
		return shared.ErrInvalidState.WithMessage("Order total does not match its lines").
			WithDetail("order_id", o.ID.String())
	}
	return nil
}

// ItemsSold returns the sum of line quantities
func (o *Order) ItemsSold() decimal.Decimal {
	n := decimal.Zero
	for _, l := range o.Lines {
		n = n.Add(l.Quantity)
	}
	return n
}

// Complete marks a pending order as completed
func (o *Order) Complete() error {
	if o.Status != StatusPending {
		return shared.ErrInvalidState.WithMessage("Only pending orders can be completed")
	}
	o.Status = StatusCompleted
	o.UpdatedAt = time.Now()
	return nil
}
