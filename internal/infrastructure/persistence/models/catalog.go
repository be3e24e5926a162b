package models

import (
	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product entity
type ProductModel struct {
	BaseModel
	Code              string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name              string          `gorm:"type:varchar(200);not null"`
	Category          string          `gorm:"type:varchar(100);not null;default:''"`
	Unit              string          `gorm:"type:varchar(20);not null"`
	Price             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0;check:available_quantity >= 0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:        m.BaseModel.ToDomain(),
		Code:              m.Code,
		Name:              m.Name,
		Category:          m.Category,
		Unit:              m.Unit,
		Price:             m.Price,
		AvailableQuantity: m.AvailableQuantity,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		Code:              p.Code,
		Name:              p.Name,
		Category:          p.Category,
		Unit:              p.Unit,
		Price:             p.Price,
		AvailableQuantity: p.AvailableQuantity,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
