package handler

import (
	"context"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// StockReader returns per-product availability
type StockReader interface {
	CurrentStock(ctx context.Context) (catalog.StockSnapshot, error)
}

// StockHandler serves the product list with current availability
type StockHandler struct {
	BaseHandler
	stock StockReader
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stock StockReader) *StockHandler {
	return &StockHandler{stock: stock}
}

// List returns every product with its availability.
// A snapshot served from the built-in catalog is flagged stale.
func (h *StockHandler) List(c *gin.Context) {
	snap, err := h.stock.CurrentStock(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToStockResponse(snap), dto.Meta{
		Source: snap.Source,
		Stale:  snap.Source != catalog.SourceStore,
	})
}
