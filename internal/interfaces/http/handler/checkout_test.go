package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/farmstore/backend/internal/application/checkout"
	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	got    checkout.SubmitRequest
	result *checkout.SubmitResult
	err    error
}

func (f *fakeSubmitter) Submit(_ context.Context, req checkout.SubmitRequest) (*checkout.SubmitResult, error) {
	f.got = req
	return f.result, f.err
}

func committedOrder(channel order.Channel) *order.Order {
	productID := uuid.New()
	o := &order.Order{
		BaseEntity: shared.BaseEntity{ID: uuid.New(), CreatedAt: time.Now()},
		Customer:   order.Customer{Name: "Awa", Phone: "771234567"},
		Total:      decimal.NewFromInt(3000),
		Status:     channel.InitialStatus(),
		Channel:    channel,
	}
	o.Lines = []order.OrderLine{{
		ID:          uuid.New(),
		OrderID:     o.ID,
		ProductID:   productID,
		ProductName: "Mangues",
		Unit:        "kg",
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.NewFromInt(1500),
		LineTotal:   decimal.NewFromInt(3000),
	}}
	return o
}

func newCheckoutRouter(s OrderSubmitter) *gin.Engine {
	h := NewCheckoutHandler(s)
	return newTestRouter(func(r *gin.Engine) {
		r.POST("/checkout", h.PlaceOrder)
		r.POST("/caisse/sales", h.RecordSale)
	})
}

func TestCheckoutHandler_PlaceOrderCommitted(t *testing.T) {
	o := committedOrder(order.ChannelStorefront)
	s := &fakeSubmitter{result: &checkout.SubmitResult{
		Order:             o,
		State:             order.StateCommitted,
		Trace:             []order.SubmissionState{order.StateDraft, order.StateValidating, order.StateWritingOrder, order.StateWritingLines, order.StateCommitted},
		GeolocationNotice: order.GeoDenied.Notice(),
	}}
	clientID := uuid.New()

	w, env := doRequest(t, newCheckoutRouter(s), http.MethodPost, "/checkout", "shop-1", dto.CheckoutRequest{
		OrderID:         clientID.String(),
		Customer:        dto.CustomerRequest{Name: "Awa", Phone: "+221 77 123 45 67", Quartier: "Medina"},
		LocationFailure: "denied",
		Notes:           "sonner deux fois",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "shop-1", s.got.SessionID)
	assert.Equal(t, clientID, s.got.OrderID)
	assert.Equal(t, order.ChannelStorefront, s.got.Channel)
	assert.Equal(t, order.GeoDenied, s.got.LocationFailure)
	assert.Nil(t, s.got.Location)
	assert.Equal(t, "Medina", s.got.Customer.Quartier)

	resp := decodeData[dto.SubmissionResponse](t, env)
	assert.Equal(t, string(order.StateCommitted), resp.State)
	assert.Len(t, resp.Trace, 5)
	require.NotNil(t, resp.Order)
	assert.Equal(t, o.ID, resp.Order.ID)
	require.NotNil(t, env.Meta)
	assert.Equal(t, order.GeoDenied.Notice(), env.Meta.Notice)
}

func TestCheckoutHandler_QueuedWhenOffline(t *testing.T) {
	o := committedOrder(order.ChannelStorefront)
	o.Offline = true
	s := &fakeSubmitter{result: &checkout.SubmitResult{Order: o, State: order.StateQueued, Queued: true}}

	w, env := doRequest(t, newCheckoutRouter(s), http.MethodPost, "/checkout", "shop-1", dto.CheckoutRequest{
		Customer: dto.CustomerRequest{Name: "Awa", Phone: "771234567"},
		Location: &dto.LocationRequest{Latitude: 14.69, Longitude: -17.44, Accuracy: 20},
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, s.got.Location)
	assert.InDelta(t, 14.69, s.got.Location.Latitude, 1e-9)
	resp := decodeData[dto.SubmissionResponse](t, env)
	assert.True(t, resp.Queued)
	assert.True(t, resp.Order.Offline)
	assert.Equal(t, "local", env.Meta.Source)
}

func TestCheckoutHandler_Rejections(t *testing.T) {
	productID := uuid.New()
	tests := []struct {
		name       string
		result     *checkout.SubmitResult
		err        error
		wantStatus int
		wantCode   string
		wantTrace  bool
	}{
		{
			name: "insufficient stock keeps the trace",
			result: &checkout.SubmitResult{
				State: order.StateRejected,
				Trace: []order.SubmissionState{order.StateDraft, order.StateValidating, order.StateRejected},
			},
			err:        order.InsufficientStock(productID, "Mangues", decimal.NewFromInt(3), decimal.NewFromInt(1)),
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeInsufficientStock,
			wantTrace:  true,
		},
		{
			name:       "empty cart",
			result:     &checkout.SubmitResult{State: order.StateRejected, Trace: []order.SubmissionState{order.StateDraft, order.StateRejected}},
			err:        order.ErrEmptyCart,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeEmptyCart,
			wantTrace:  true,
		},
		{
			name:       "orphaned order",
			err:        order.OrphanedOrder(uuid.New(), shared.ErrInsufficientStock, shared.ErrUnavailable),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeOrphanedOrder,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSubmitter{result: tt.result, err: tt.err}
			w, env := doRequest(t, newCheckoutRouter(s), http.MethodPost, "/checkout", "shop-1", dto.CheckoutRequest{
				Customer: dto.CustomerRequest{Name: "Awa", Phone: "771234567"},
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantTrace {
				resp := decodeData[dto.SubmissionResponse](t, env)
				assert.Equal(t, string(order.StateRejected), resp.State)
				assert.NotEmpty(t, resp.Trace)
			} else {
				assert.Empty(t, env.Data)
			}
		})
	}
}

func TestCheckoutHandler_RecordSale(t *testing.T) {
	o := committedOrder(order.ChannelCaisse)
	s := &fakeSubmitter{result: &checkout.SubmitResult{Order: o, State: order.StateCommitted}}

	w, _ := doRequest(t, newCheckoutRouter(s), http.MethodPost, "/caisse/sales", "caisse-1", dto.CaisseSaleRequest{})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, order.ChannelCaisse, s.got.Channel)
	assert.Equal(t, "caisse-1", s.got.SessionID)
}

func TestCheckoutHandler_InvalidOrderID(t *testing.T) {
	s := &fakeSubmitter{}
	w, env := doRequest(t, newCheckoutRouter(s), http.MethodPost, "/checkout", "shop-1", map[string]string{"order_id": "not-a-uuid"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Empty(t, s.got.SessionID, "nothing was submitted")
}

type fakeQueue struct {
	pending  []checkout.QueuedOrder
	rejected []checkout.QueuedOrder
	flush    checkout.FlushResult
	err      error
}

func (f *fakeQueue) List(context.Context, string) ([]checkout.QueuedOrder, error) {
	return f.pending, nil
}

func (f *fakeQueue) Rejected(context.Context, string) ([]checkout.QueuedOrder, error) {
	return f.rejected, nil
}

func (f *fakeQueue) FlushSession(context.Context, string) (checkout.FlushResult, error) {
	return f.flush, f.err
}

func newOfflineRouter(q *fakeQueue) *gin.Engine {
	h := NewOfflineHandler(q, q)
	return newTestRouter(func(r *gin.Engine) {
		r.GET("/offline/orders", h.List)
		r.POST("/offline/flush", h.Flush)
	})
}

func TestOfflineHandler_List(t *testing.T) {
	pending := checkout.QueuedOrder{ID: uuid.New(), Channel: order.ChannelCaisse, Status: order.StatusCompleted, CreatedAt: time.Now()}
	rejected := checkout.QueuedOrder{ID: uuid.New(), Channel: order.ChannelStorefront, Status: order.StatusPending, Reason: "Insufficient stock for Mangues"}
	q := &fakeQueue{pending: []checkout.QueuedOrder{pending}, rejected: []checkout.QueuedOrder{rejected}}

	w, env := doRequest(t, newOfflineRouter(q), http.MethodGet, "/offline/orders", "caisse-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[OfflineOrdersResponse](t, env)
	require.Len(t, resp.Pending, 1)
	assert.Equal(t, pending.ID, resp.Pending[0].ID)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, rejected.Reason, resp.Rejected[0].Reason)
}

func TestOfflineHandler_Flush(t *testing.T) {
	uploaded := uuid.New()

	t.Run("complete", func(t *testing.T) {
		q := &fakeQueue{flush: checkout.FlushResult{Uploaded: []uuid.UUID{uploaded}}}
		w, env := doRequest(t, newOfflineRouter(q), http.MethodPost, "/offline/flush", "caisse-1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeData[dto.FlushResponse](t, env)
		assert.Equal(t, []uuid.UUID{uploaded}, resp.Uploaded)
		assert.NotNil(t, resp.Rejected)
	})

	t.Run("interrupted", func(t *testing.T) {
		q := &fakeQueue{flush: checkout.FlushResult{Remaining: 2, Interrupted: true}}
		w, env := doRequest(t, newOfflineRouter(q), http.MethodPost, "/offline/flush", "caisse-1", nil)

		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 2, decodeData[dto.FlushResponse](t, env).Remaining)
	})
}
