package catalog

import (
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type builtinEntry struct {
	id        string
	code      string
	name      string
	category  string
	unit      string
	price     int64
	available string
}

var builtinEntries = []builtinEntry{
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a01", "TOM-01", "Tomates", "Légumes", "kg", 1500, "40"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a02", "OIG-01", "Oignons", "Légumes", "kg", 800, "60"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a03", "POM-01", "Pommes de terre", "Légumes", "kg", 700, "80"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a04", "PIM-01", "Piments", "Légumes", "kg", 2000, "12.5"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a05", "SAL-01", "Salade", "Légumes", "botte", 500, "30"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a06", "MAN-01", "Mangues", "Fruits", "kg", 1000, "50"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a07", "BAN-01", "Bananes", "Fruits", "kg", 900, "35"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a08", "OEU-01", "Œufs", "Élevage", "plateau", 2500, "20"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a09", "POU-01", "Poulet fermier", "Élevage", "pièce", 4500, "10"},
	{"6f1c2a0e-8d4b-4c61-9a39-1f0d5e7b2a10", "LAI-01", "Lait frais", "Élevage", "litre", 1000, "25"},
}

// BuiltinCatalog returns the static catalog used when the backing store is unreachable.
// A fresh slice is returned on every call.
func BuiltinCatalog() []Product {
	products := make([]Product, 0, len(builtinEntries))
	for _, e := range builtinEntries {
		products = append(products, Product{
			BaseEntity:        shared.BaseEntity{ID: uuid.MustParse(e.id)},
			Code:              e.code,
			Name:              e.name,
			Category:          e.category,
			Unit:              e.unit,
			Price:             decimal.NewFromInt(e.price),
			AvailableQuantity: decimal.RequireFromString(e.available),
		})
	}
	return products
}
