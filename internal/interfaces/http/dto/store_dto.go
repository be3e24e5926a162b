package dto

import (
	"time"

	appcart "github.com/farmstore/backend/internal/application/cart"
	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductResponse is a product with its current availability
type ProductResponse struct {
	ID                uuid.UUID       `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	InStock           bool            `json:"in_stock"`
}

// StockResponse is a stock snapshot
type StockResponse struct {
	Products []ProductResponse `json:"products"`
	Source   string            `json:"source"`
	TakenAt  time.Time         `json:"taken_at"`
}

// ToStockResponse converts a snapshot
func ToStockResponse(snap catalog.StockSnapshot) StockResponse {
	out := StockResponse{
		Products: make([]ProductResponse, 0, len(snap.Products)),
		Source:   snap.Source,
		TakenAt:  snap.TakenAt,
	}
	for i := range snap.Products {
		p := &snap.Products[i]
		out.Products = append(out.Products, ProductResponse{
			ID:                p.ID,
			Code:              p.Code,
			Name:              p.Name,
			Category:          p.Category,
			Unit:              p.Unit,
			Price:             p.Price,
			AvailableQuantity: p.AvailableQuantity,
			InStock:           p.InStock(),
		})
	}
	return out
}

// StepRequest changes a cart line by one step. Step defaults to the cart step.
type StepRequest struct {
	Step string `json:"step" binding:"omitempty,numeric"`
}

// SetLineRequest sets a cart line to an absolute quantity
type SetLineRequest struct {
	Quantity string `json:"quantity" binding:"required,numeric"`
}

// CartLineResponse is one cart line
type CartLineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartResponse is a session's cart
type CartResponse struct {
	SessionID string             `json:"session_id"`
	Lines     []CartLineResponse `json:"lines"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount decimal.Decimal    `json:"item_count"`
	// Changed is false when a mutation was clamped or had nothing to do
	Changed bool `json:"changed"`
}

// ToCartResponse converts a cart snapshot
func ToCartResponse(s appcart.Snapshot, changed bool) CartResponse {
	out := CartResponse{
		SessionID: s.SessionID,
		Lines:     make([]CartLineResponse, 0, len(s.Lines)),
		Total:     s.Total,
		ItemCount: s.ItemCount,
		Changed:   changed,
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, CartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Unit:      l.Unit,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.Total(),
		})
	}
	return out
}

// CustomerRequest carries contact details. Missing name or phone is reported by
// checkout itself, so they are not required here.
type CustomerRequest struct {
	Name     string `json:"name" binding:"max=200"`
	Phone    string `json:"phone" binding:"omitempty,phone"`
	Quartier string `json:"quartier" binding:"max=200"`
	Address  string `json:"address" binding:"max=500"`
}

// LocationRequest is a device geolocation fix
type LocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Accuracy  float64 `json:"accuracy" binding:"gte=0"`
}

// CheckoutRequest places a storefront order from the session's cart
type CheckoutRequest struct {
	OrderID         string           `json:"order_id" binding:"omitempty,uuid"`
	Customer        CustomerRequest  `json:"customer"`
	Location        *LocationRequest `json:"location"`
	LocationFailure string           `json:"location_failure" binding:"omitempty,oneof=denied unavailable timeout"`
	Notes           string           `json:"notes" binding:"max=1000"`
}

// CaisseSaleRequest records a point-of-sale sale from the session's cart
type CaisseSaleRequest struct {
	OrderID  string          `json:"order_id" binding:"omitempty,uuid"`
	Customer CustomerRequest `json:"customer"`
	Notes    string          `json:"notes" binding:"max=1000"`
}

// Details converts the customer and location part of the request
func (r CheckoutRequest) Details() (order.Customer, *order.GeoPoint, order.GeoFailureReason) {
	var loc *order.GeoPoint
	if r.Location != nil {
		loc = &order.GeoPoint{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
			Accuracy:  r.Location.Accuracy,
		}
	}
	return r.Customer.toCustomer(), loc, order.GeoFailureReason(r.LocationFailure)
}

func (c CustomerRequest) toCustomer() order.Customer {
	return order.Customer{Name: c.Name, Phone: c.Phone, Quartier: c.Quartier, Address: c.Address}
}

// CustomerDetails converts the customer part of the request
func (r CaisseSaleRequest) CustomerDetails() order.Customer {
	return r.Customer.toCustomer()
}

// ParseOrderID returns the client-assigned order id, or uuid.Nil when absent
func ParseOrderID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

// OrderLineResponse is a frozen order line
type OrderLineResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderResponse is a committed or queued order
type OrderResponse struct {
	ID        uuid.UUID           `json:"id"`
	Customer  order.Customer      `json:"customer"`
	Location  *order.GeoPoint     `json:"location,omitempty"`
	Notes     string              `json:"notes,omitempty"`
	Total     decimal.Decimal     `json:"total"`
	Status    string              `json:"status"`
	Channel   string              `json:"channel"`
	Offline   bool                `json:"offline"`
	CreatedAt time.Time           `json:"created_at"`
	Lines     []OrderLineResponse `json:"lines"`
}

// ToOrderResponse converts an order
func ToOrderResponse(o *order.Order) OrderResponse {
	out := OrderResponse{
		ID:        o.ID,
		Customer:  o.Customer,
		Location:  o.Location,
		Notes:     o.Notes,
		Total:     o.Total,
		Status:    string(o.Status),
		Channel:   string(o.Channel),
		Offline:   o.Offline,
		CreatedAt: o.CreatedAt,
		Lines:     make([]OrderLineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, OrderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	return out
}

// ToOrderResponses converts a list of orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out
}

// SubmissionResponse reports the outcome of a checkout
type SubmissionResponse struct {
	Order  *OrderResponse `json:"order,omitempty"`
	State  string         `json:"state"`
	Trace  []string       `json:"trace"`
	Queued bool           `json:"queued"`
}

// ToSubmissionResponse converts a submission outcome
func ToSubmissionResponse(o *order.Order, state order.SubmissionState, trace []order.SubmissionState, queued bool) SubmissionResponse {
	out := SubmissionResponse{State: string(state), Queued: queued, Trace: make([]string, 0, len(trace))}
	for _, s := range trace {
		out.Trace = append(out.Trace, string(s))
	}
	if o != nil {
		r := ToOrderResponse(o)
		out.Order = &r
	}
	return out
}

// FlushResponse reports an offline queue reconciliation pass
type FlushResponse struct {
	Uploaded    []uuid.UUID `json:"uploaded"`
	Duplicates  []uuid.UUID `json:"duplicates"`
	Rejected    []uuid.UUID `json:"rejected"`
	Remaining   int         `json:"remaining"`
	Interrupted bool        `json:"interrupted"`
}
