// Package models contains GORM persistence models that map to the backing store tables.
// They are kept apart from the domain entities so the domain stays free of ORM tags.
//
//   - base.go: shared identity and timestamp columns
//   - catalog.go: products
//   - order.go: orders and order_items
package models
