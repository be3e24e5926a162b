package handler

import (
	"context"

	appcart "github.com/farmstore/backend/internal/application/cart"
	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStores hands out the cart store of a session
type CartStores interface {
	Store(ctx context.Context, sessionID string) (*appcart.Store, error)
	Step() decimal.Decimal
}

// ProductLookup resolves a product with its current availability
type ProductLookup interface {
	Product(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// CartHandler serves the session cart
type CartHandler struct {
	BaseHandler
	carts    CartStores
	products ProductLookup
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts CartStores, products ProductLookup) *CartHandler {
	return &CartHandler{carts: carts, products: products}
}

// Get returns the session's cart
func (h *CartHandler) Get(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	h.Success(c, dto.ToCartResponse(store.Snapshot(), false))
}

// Add raises a line by one step, clamped to the available stock
func (h *CartHandler) Add(c *gin.Context) {
	productID, step, ok := h.stepRequest(c)
	if !ok {
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	product, err := h.products.Product(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	changed, err := store.Add(c.Request.Context(), product, step)
	h.respond(c, store, changed, err)
}

// Remove lowers a line by one step, dropping it at zero
func (h *CartHandler) Remove(c *gin.Context) {
	productID, step, ok := h.stepRequest(c)
	if !ok {
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	changed, err := store.Remove(c.Request.Context(), productID, step)
	h.respond(c, store, changed, err)
}

// SetLine sets a line to an absolute quantity
func (h *CartHandler) SetLine(c *gin.Context) {
	productID, ok := h.productID(c)
	if !ok {
		return
	}
	var req dto.SetLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		h.BadRequest(c, "Invalid quantity")
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	product, err := h.products.Product(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	changed, err := store.SetLine(c.Request.Context(), product, quantity)
	h.respond(c, store, changed, err)
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	err := store.Clear(c.Request.Context())
	h.respond(c, store, err == nil, err)
}

func (h *CartHandler) store(c *gin.Context) (*appcart.Store, bool) {
	session, ok := h.sessionID(c)
	if !ok {
		return nil, false
	}
	store, err := h.carts.Store(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return store, true
}

func (h *CartHandler) productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("Invalid product ID").WithDetail("product_id", c.Param("product_id")))
		return uuid.Nil, false
	}
	return id, true
}

// stepRequest reads the product id and the optional step, defaulting to the cart step
func (h *CartHandler) stepRequest(c *gin.Context) (uuid.UUID, decimal.Decimal, bool) {
	id, ok := h.productID(c)
	if !ok {
		return uuid.Nil, decimal.Zero, false
	}
	var req dto.StepRequest
	if !h.bind(c, &req) {
		return uuid.Nil, decimal.Zero, false
	}
	if req.Step == "" {
		return id, h.carts.Step(), true
	}
	step, err := decimal.NewFromString(req.Step)
	if err != nil {
		h.BadRequest(c, "Invalid step")
		return uuid.Nil, decimal.Zero, false
	}
	return id, step, true
}

func (h *CartHandler) respond(c *gin.Context, store *appcart.Store, changed bool, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCartResponse(store.Snapshot(), changed))
}
