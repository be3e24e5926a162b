package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	byID          map[uuid.UUID]*order.Order
	recent        []order.Order
	authoritative bool
	gotLimit      int
}

func (f *fakeOrders) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if o, ok := f.byID[id]; ok {
		return o, nil
	}
	return nil, order.ErrOrderNotFound
}

func (f *fakeOrders) RecentOrders(_ context.Context, limit int) ([]order.Order, bool, error) {
	f.gotLimit = limit
	return f.recent, f.authoritative, nil
}

func newOrderRouter(f *fakeOrders) *gin.Engine {
	h := NewOrderHandler(f, f)
	return newTestRouter(func(r *gin.Engine) {
		r.GET("/orders", h.List)
		r.GET("/orders/:id", h.GetByID)
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	o := committedOrder(order.ChannelStorefront)
	f := &fakeOrders{byID: map[uuid.UUID]*order.Order{o.ID: o}}
	r := newOrderRouter(f)

	w, env := doRequest(t, r, http.MethodGet, "/orders/"+o.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[dto.OrderResponse](t, env)
	assert.Equal(t, o.ID, resp.ID)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "Mangues", resp.Lines[0].ProductName)

	w, env = doRequest(t, r, http.MethodGet, "/orders/"+uuid.New().String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/orders/42", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_List(t *testing.T) {
	f := &fakeOrders{recent: []order.Order{*committedOrder(order.ChannelCaisse)}, authoritative: true}
	r := newOrderRouter(f)

	w, env := doRequest(t, r, http.MethodGet, "/orders", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultRecentOrders, f.gotLimit)
	assert.Len(t, decodeData[[]dto.OrderResponse](t, env), 1)
	assert.False(t, env.Meta.Stale)

	f.authoritative = false
	_, env = doRequest(t, r, http.MethodGet, "/orders?limit=3", "", nil)
	assert.Equal(t, 3, f.gotLimit)
	assert.True(t, env.Meta.Stale)
	assert.Equal(t, "local", env.Meta.Source)

	for _, bad := range []string{"0", "101", "x"} {
		w, _ = doRequest(t, r, http.MethodGet, "/orders?limit="+bad, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}
