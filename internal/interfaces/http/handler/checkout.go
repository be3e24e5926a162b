package handler

import (
	"context"
	"net/http"

	"github.com/farmstore/backend/internal/application/checkout"
	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderSubmitter turns a session's cart into an order
type OrderSubmitter interface {
	Submit(ctx context.Context, req checkout.SubmitRequest) (*checkout.SubmitResult, error)
}

// CheckoutHandler places storefront orders and caisse sales
type CheckoutHandler struct {
	BaseHandler
	submitter OrderSubmitter
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(submitter OrderSubmitter) *CheckoutHandler {
	return &CheckoutHandler{submitter: submitter}
}

// PlaceOrder submits the session's cart as a storefront order.
// Answers 201 once committed, or 202 when the order was kept on this device
// because the store is unreachable.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	session, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if !h.bind(c, &req) {
		return
	}
	orderID, ok := h.orderID(c, req.OrderID)
	if !ok {
		return
	}
	customer, location, failure := req.Details()
	h.submit(c, checkout.SubmitRequest{
		SessionID:       session,
		OrderID:         orderID,
		Customer:        customer,
		Location:        location,
		LocationFailure: failure,
		Notes:           req.Notes,
		Channel:         order.ChannelStorefront,
	})
}

// RecordSale submits the session's cart as a caisse sale
func (h *CheckoutHandler) RecordSale(c *gin.Context) {
	session, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req dto.CaisseSaleRequest
	if !h.bind(c, &req) {
		return
	}
	orderID, ok := h.orderID(c, req.OrderID)
	if !ok {
		return
	}
	h.submit(c, checkout.SubmitRequest{
		SessionID: session,
		OrderID:   orderID,
		Customer:  req.CustomerDetails(),
		Notes:     req.Notes,
		Channel:   order.ChannelCaisse,
	})
}

func (h *CheckoutHandler) orderID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := dto.ParseOrderID(raw)
	if err != nil {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("Invalid order ID").WithDetail("order_id", raw))
		return uuid.Nil, false
	}
	return id, true
}

func (h *CheckoutHandler) submit(c *gin.Context, req checkout.SubmitRequest) {
	result, err := h.submitter.Submit(c.Request.Context(), req)
	if err != nil {
		if result != nil {
			_ = c.Error(err)
			h.HandleErrorWithData(c, err, dto.ToSubmissionResponse(result.Order, result.State, result.Trace, result.Queued))
			return
		}
		h.HandleError(c, err)
		return
	}

	body := dto.ToSubmissionResponse(result.Order, result.State, result.Trace, result.Queued)
	meta := dto.Meta{Notice: result.GeolocationNotice, Source: "store"}
	if result.Queued {
		meta.Source = "local"
		h.Accepted(c, body, meta)
		return
	}
	h.Created(c, body, meta)
}

// OfflineQueue exposes the orders kept on this device
type OfflineQueue interface {
	List(ctx context.Context, sessionID string) ([]checkout.QueuedOrder, error)
	Rejected(ctx context.Context, sessionID string) ([]checkout.QueuedOrder, error)
}

// QueueFlusher uploads queued orders
type QueueFlusher interface {
	FlushSession(ctx context.Context, sessionID string) (checkout.FlushResult, error)
}

// OfflineHandler serves the session's offline order queue
type OfflineHandler struct {
	BaseHandler
	queue   OfflineQueue
	flusher QueueFlusher
}

// NewOfflineHandler creates a new OfflineHandler
func NewOfflineHandler(queue OfflineQueue, flusher QueueFlusher) *OfflineHandler {
	return &OfflineHandler{queue: queue, flusher: flusher}
}

// OfflineOrdersResponse lists queued and rejected offline orders
type OfflineOrdersResponse struct {
	Pending  []dto.OrderResponse `json:"pending"`
	Rejected []RejectedOrder     `json:"rejected"`
}

// RejectedOrder is a queued order the store refused, with the reason
type RejectedOrder struct {
	dto.OrderResponse
	Reason string `json:"reason"`
}

// List returns the session's pending and rejected offline orders
func (h *OfflineHandler) List(c *gin.Context) {
	session, ok := h.sessionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	pending, err := h.queue.List(ctx, session)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rejected, err := h.queue.Rejected(ctx, session)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := OfflineOrdersResponse{
		Pending:  make([]dto.OrderResponse, 0, len(pending)),
		Rejected: make([]RejectedOrder, 0, len(rejected)),
	}
	for _, q := range pending {
		out.Pending = append(out.Pending, dto.ToOrderResponse(q.ToOrder()))
	}
	for _, q := range rejected {
		out.Rejected = append(out.Rejected, RejectedOrder{OrderResponse: dto.ToOrderResponse(q.ToOrder()), Reason: q.Reason})
	}
	h.SuccessWithMeta(c, out, dto.Meta{Source: "local"})
}

// Flush uploads the session's queued orders now
func (h *OfflineHandler) Flush(c *gin.Context) {
	session, ok := h.sessionID(c)
	if !ok {
		return
	}
	res, err := h.flusher.FlushSession(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	status := http.StatusOK
	if res.Interrupted {
		status = http.StatusAccepted
	}
	c.JSON(status, dto.NewSuccessResponse(dto.FlushResponse{
		Uploaded:    nonNilIDs(res.Uploaded),
		Duplicates:  nonNilIDs(res.Duplicates),
		Rejected:    nonNilIDs(res.Rejected),
		Remaining:   res.Remaining,
		Interrupted: res.Interrupted,
	}))
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
