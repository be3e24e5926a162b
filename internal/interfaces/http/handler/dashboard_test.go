package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/farmstore/backend/internal/application/dashboard"
	appreport "github.com/farmstore/backend/internal/application/report"
	"github.com/farmstore/backend/internal/domain/report"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	view       dashboard.View
	refreshErr error
	interval   time.Duration
	updates    []dashboard.View
	refreshed  int
}

func (f *fakeController) View() dashboard.View { return f.view }

func (f *fakeController) Refresh(context.Context) (dashboard.View, error) {
	f.refreshed++
	return f.view, f.refreshErr
}

func (f *fakeController) Subscribe() (<-chan dashboard.View, func()) {
	ch := make(chan dashboard.View, len(f.updates))
	for _, v := range f.updates {
		ch <- v
	}
	close(ch)
	return ch, func() {}
}

func (f *fakeController) Reconfigure(d time.Duration) error {
	if d <= 0 {
		return dashboard.ErrNotRunning
	}
	f.interval = d
	return nil
}

func (f *fakeController) PollInterval() time.Duration { return f.interval }

type fakeWindows map[report.Window]appreport.WindowSummary

func (f fakeWindows) Query(_ context.Context, w report.Window) (appreport.WindowSummary, error) {
	return f[w], nil
}

func readyView(today int64, authoritative bool) dashboard.View {
	snap := &appreport.Snapshot{
		Summaries: []appreport.WindowSummary{{
			SalesSummary:  report.SalesSummary{Window: report.WindowToday, TotalSalesAmount: decimal.NewFromInt(today)},
			Authoritative: authoritative,
		}},
		Authoritative: authoritative,
		GeneratedAt:   time.Now(),
	}
	return dashboard.View{State: dashboard.StateReady, Snapshot: snap, LastLoadedAt: snap.GeneratedAt, Loads: 1}
}

func newDashboardRouter(c DashboardController, w WindowQuerier) *gin.Engine {
	h := NewDashboardHandler(c, w, WithSSEHeartbeat(time.Hour))
	return newTestRouter(func(r *gin.Engine) {
		r.GET("/dashboard", h.Get)
		r.POST("/dashboard/refresh", h.Refresh)
		r.GET("/dashboard/summary", h.Summary)
		r.GET("/dashboard/stream", h.Stream)
		r.GET("/dashboard/poll-interval", h.GetPollInterval)
		r.PUT("/dashboard/poll-interval", h.SetPollInterval)
	})
}

func TestDashboardHandler_Get(t *testing.T) {
	view := readyView(95000, true)
	view.Stale = true
	r := newDashboardRouter(&fakeController{view: view}, nil)

	w, env := doRequest(t, r, http.MethodGet, "/dashboard", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[dto.DashboardResponse](t, env)
	assert.Equal(t, string(dashboard.StateReady), resp.State)
	assert.True(t, resp.Stale)
	require.Len(t, resp.Summaries, 1)
	assert.True(t, resp.Summaries[0].TotalSalesAmount.Equal(decimal.NewFromInt(95000)))
	assert.NotNil(t, resp.RecentOrders)
	assert.True(t, env.Meta.Stale)
}

func TestDashboardHandler_Refresh(t *testing.T) {
	c := &fakeController{view: readyView(1000, true)}
	r := newDashboardRouter(c, nil)

	w, _ := doRequest(t, r, http.MethodPost, "/dashboard/refresh", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, c.refreshed)

	c.refreshErr = dashboard.ErrNotRunning
	w, env := doRequest(t, r, http.MethodPost, "/dashboard/refresh", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
}

func TestDashboardHandler_PollInterval(t *testing.T) {
	c := &fakeController{interval: 30 * time.Second}
	r := newDashboardRouter(c, nil)

	_, env := doRequest(t, r, http.MethodGet, "/dashboard/poll-interval", "", nil)
	assert.Equal(t, 30, decodeData[PollIntervalResponse](t, env).Seconds)

	w, _ := doRequest(t, r, http.MethodPut, "/dashboard/poll-interval", "", PollIntervalRequest{Seconds: 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5*time.Second, c.interval)

	w, _ = doRequest(t, r, http.MethodPut, "/dashboard/poll-interval", "", PollIntervalRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardHandler_Summary(t *testing.T) {
	windows := fakeWindows{
		report.WindowToday:     {SalesSummary: report.SalesSummary{Window: report.WindowToday}, Authoritative: true},
		report.WindowLast7Days: {SalesSummary: report.SalesSummary{Window: report.WindowLast7Days}},
	}
	r := newDashboardRouter(&fakeController{}, windows)

	w, env := doRequest(t, r, http.MethodGet, "/dashboard/summary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.WindowToday, decodeData[appreport.WindowSummary](t, env).Window)
	assert.False(t, env.Meta.Stale)

	_, env = doRequest(t, r, http.MethodGet, "/dashboard/summary?window=week", "", nil)
	assert.True(t, env.Meta.Stale)

	w, env = doRequest(t, r, http.MethodGet, "/dashboard/summary?window=year", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, env.Error.Code)
}

func TestDashboardHandler_Stream(t *testing.T) {
	c := &fakeController{
		view:    readyView(1000, true),
		updates: []dashboard.View{readyView(2500, true)},
	}
	r := newDashboardRouter(c, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/stream", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: dashboard\n"))
	assert.Contains(t, body, `"2500"`)
	assert.True(t, strings.HasSuffix(body, "event: closed\ndata: {}\n\n"))
}

func TestDashboardHandler_StreamLimit(t *testing.T) {
	h := NewDashboardHandler(&fakeController{}, nil, WithSSEMaxClients(1))
	h.clients.Add(1)
	r := newTestRouter(func(r *gin.Engine) { r.GET("/dashboard/stream", h.Stream) })

	w, env := doRequest(t, r, http.MethodGet, "/dashboard/stream", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeUnavailable, env.Error.Code)
	assert.Equal(t, int64(1), h.clients.Load())
}

func TestDashboardHandler_StreamLimitReleasesSlot(t *testing.T) {
	h := NewDashboardHandler(&fakeController{view: readyView(1000, true)}, nil, WithSSEMaxClients(1))
	r := newTestRouter(func(r *gin.Engine) { r.GET("/dashboard/stream", h.Stream) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/stream", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, int64(0), h.clients.Load())
}
