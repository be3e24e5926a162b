package handler

import (
	"context"
	"strconv"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultRecentOrders = 10
	maxRecentOrders     = 100
)

// OrderFinder loads a committed order
type OrderFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// RecentOrders lists the newest orders, falling back to local data when offline
type RecentOrders interface {
	RecentOrders(ctx context.Context, limit int) ([]order.Order, bool, error)
}

// OrderHandler serves committed orders
type OrderHandler struct {
	BaseHandler
	orders OrderFinder
	recent RecentOrders
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderFinder, recent RecentOrders) *OrderHandler {
	return &OrderHandler{orders: orders, recent: recent}
}

// GetByID returns one order with its lines
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	o, err := h.orders.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOrderResponse(o))
}

// List returns the most recent orders, newest first
func (h *OrderHandler) List(c *gin.Context) {
	limit := defaultRecentOrders
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecentOrders {
			h.HandleError(c, shared.ErrInvalidInput.WithMessage("limit must be between 1 and 100").WithDetail("limit", raw))
			return
		}
		limit = n
	}
	orders, authoritative, err := h.recent.RecentOrders(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	meta := dto.Meta{Source: "store"}
	if !authoritative {
		meta = dto.Meta{Source: "local", Stale: true}
	}
	h.SuccessWithMeta(c, dto.ToOrderResponses(orders), meta)
}
