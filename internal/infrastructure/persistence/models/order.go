package models

import (
	"time"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	BaseModel
	CustomerName     string           `gorm:"type:varchar(200);not null;default:''"`
	CustomerPhone    string           `gorm:"type:varchar(50);not null;default:''"`
	Quartier         string           `gorm:"type:varchar(200);not null;default:''"`
	Address          string           `gorm:"type:varchar(500);not null;default:''"`
	Latitude         *float64         `gorm:"type:double precision"`
	Longitude        *float64         `gorm:"type:double precision"`
	LocationAccuracy *float64         `gorm:"type:double precision"`
	Notes            string           `gorm:"type:text;not null;default:''"`
	Total            decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Status           order.Status     `gorm:"type:varchar(20);not null;default:'pending'"`
	Channel          order.Channel    `gorm:"type:varchar(20);not null;default:'storefront'"`
	Offline          bool             `gorm:"not null;default:false"`
	Items            []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseEntity: m.BaseModel.ToDomain(),
		Customer: order.Customer{
			Name:     m.CustomerName,
			Phone:    m.CustomerPhone,
			Quartier: m.Quartier,
			Address:  m.Address,
		},
		Notes:   m.Notes,
		Total:   m.Total,
		Status:  m.Status,
		Channel: m.Channel,
		Offline: m.Offline,
		Lines:   make([]order.OrderLine, len(m.Items)),
	}
	if m.Latitude != nil && m.Longitude != nil {
		o.Location = &order.GeoPoint{Latitude: *m.Latitude, Longitude: *m.Longitude}
		if m.LocationAccuracy != nil {
			o.Location.Accuracy = *m.LocationAccuracy
		}
	}
	for i := range m.Items {
		o.Lines[i] = m.Items[i].ToDomain()
	}
	return o
}

// OrderModelFromDomain creates the order row without its items
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{
		CustomerName:  o.Customer.Name,
		CustomerPhone: o.Customer.Phone,
		Quartier:      o.Customer.Quartier,
		Address:       o.Customer.Address,
		Notes:         o.Notes,
		Total:         o.Total,
		Status:        o.Status,
		Channel:       o.Channel,
		Offline:       o.Offline,
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	if o.Location != nil {
		lat, lng, acc := o.Location.Latitude, o.Location.Longitude, o.Location.Accuracy
		m.Latitude, m.Longitude, m.LocationAccuracy = &lat, &lng, &acc
	}
	return m
}

// Row returns the columns published with row change notifications
func (m *OrderModel) Row() map[string]any {
	return map[string]any{
		"id":         m.ID.String(),
		"total":      m.Total.String(),
		"status":     string(m.Status),
		"channel":    string(m.Channel),
		"created_at": m.CreatedAt,
	}
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null;default:0"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Unit        string          `gorm:"type:varchar(20);not null;default:''"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderItemModel) ToDomain() order.OrderLine {
	return order.OrderLine{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Unit:        m.Unit,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		LineTotal:   m.LineTotal,
	}
}

// OrderItemModelFromDomain creates a persistence model for the line at position
func OrderItemModelFromDomain(orderID uuid.UUID, position int, l order.OrderLine) *OrderItemModel {
	id := l.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &OrderItemModel{
		ID:          id,
		OrderID:     orderID,
		Position:    position,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		Unit:        l.Unit,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		LineTotal:   l.LineTotal,
		CreatedAt:   time.Now().UTC(),
	}
}

// Row returns the columns published with row change notifications
func (m *OrderItemModel) Row() map[string]any {
	return map[string]any{
		"id":         m.ID.String(),
		"order_id":   m.OrderID.String(),
		"product_id": m.ProductID.String(),
		"quantity":   m.Quantity.String(),
		"line_total": m.LineTotal.String(),
	}
}
