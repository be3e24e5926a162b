package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/farmstore/backend/internal/application/dashboard"
	appreport "github.com/farmstore/backend/internal/application/report"
	"github.com/farmstore/backend/internal/domain/report"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DashboardController is the dashboard sync loop as seen by HTTP
type DashboardController interface {
	View() dashboard.View
	Refresh(ctx context.Context) (dashboard.View, error)
	Subscribe() (<-chan dashboard.View, func())
	Reconfigure(interval time.Duration) error
	PollInterval() time.Duration
}

// WindowQuerier summarises one reporting window
type WindowQuerier interface {
	Query(ctx context.Context, w report.Window) (appreport.WindowSummary, error)
}

// SSEMessage is one server-sent event
type SSEMessage struct {
	Event string
	Data  string
	ID    string
}

// DashboardHandler serves the sales dashboard
type DashboardHandler struct {
	BaseHandler
	controller DashboardController
	summaries  WindowQuerier
	logger     *zap.Logger
	heartbeat  time.Duration
	maxClients int
	clients    atomic.Int64
}

// DashboardOption configures a DashboardHandler
type DashboardOption func(*DashboardHandler)

// WithDashboardLogger sets the logger
func WithDashboardLogger(logger *zap.Logger) DashboardOption {
	return func(h *DashboardHandler) {
		h.logger = logger
	}
}

// WithSSEHeartbeat sets the stream heartbeat interval
func WithSSEHeartbeat(interval time.Duration) DashboardOption {
	return func(h *DashboardHandler) {
		h.heartbeat = interval
	}
}

// WithSSEMaxClients caps concurrent streams; zero means no cap
func WithSSEMaxClients(n int) DashboardOption {
	return func(h *DashboardHandler) {
		h.maxClients = n
	}
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(controller DashboardController, summaries WindowQuerier, opts ...DashboardOption) *DashboardHandler {
	h := &DashboardHandler{
		controller: controller,
		summaries:  summaries,
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxClients: 1000,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Get returns the current dashboard view without loading
func (h *DashboardHandler) Get(c *gin.Context) {
	v := h.controller.View()
	h.SuccessWithMeta(c, dto.ToDashboardResponse(v), viewMeta(v))
}

// Refresh loads the dashboard now, joining a load already in flight
func (h *DashboardHandler) Refresh(c *gin.Context) {
	v, err := h.controller.Refresh(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToDashboardResponse(v), viewMeta(v))
}

// PollIntervalRequest changes the dashboard poll interval
type PollIntervalRequest struct {
	Seconds int `json:"seconds" binding:"required,min=1,max=3600"`
}

// PollIntervalResponse reports the dashboard poll interval
type PollIntervalResponse struct {
	Seconds int `json:"seconds"`
}

// GetPollInterval returns the poll interval
func (h *DashboardHandler) GetPollInterval(c *gin.Context) {
	h.Success(c, PollIntervalResponse{Seconds: int(h.controller.PollInterval() / time.Second)})
}

// SetPollInterval changes the poll interval. Setting the current value is a no-op.
func (h *DashboardHandler) SetPollInterval(c *gin.Context) {
	var req PollIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	if err := h.controller.Reconfigure(time.Duration(req.Seconds) * time.Second); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PollIntervalResponse{Seconds: req.Seconds})
}

// Summary returns the summary of one window, computed on demand
func (h *DashboardHandler) Summary(c *gin.Context) {
	w, err := report.ParseWindow(c.DefaultQuery("window", string(report.WindowToday)))
	if err != nil {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("Unknown window").WithDetail("window", c.Query("window")))
		return
	}
	s, err := h.summaries.Query(c.Request.Context(), w)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	meta := dto.Meta{Source: "store"}
	if !s.Authoritative {
		meta = dto.Meta{Source: "local", Stale: true}
	}
	h.SuccessWithMeta(c, s, meta)
}

// Stream pushes the dashboard view as server-sent events: the current view on
// connect, then every change until the client leaves or the dashboard stops.
func (h *DashboardHandler) Stream(c *gin.Context) {
	n := h.clients.Add(1)
	defer h.clients.Add(-1)
	if h.maxClients > 0 && n > int64(h.maxClients) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Maximum number of dashboard streams reached")
		return
	}

	views, unsubscribe := h.controller.Subscribe()
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	h.sendView(c.Writer, h.controller.View())
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("dashboard stream client left")
			return
		case v, ok := <-views:
			if !ok {
				h.sendEvent(c.Writer, SSEMessage{Event: "closed", Data: "{}"})
				c.Writer.Flush()
				return
			}
			h.sendView(c.Writer, v)
			c.Writer.Flush()
		case <-heartbeat.C:
			h.sendEvent(c.Writer, SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
			c.Writer.Flush()
		}
	}
}

// StreamClients returns the number of connected streams
func (h *DashboardHandler) StreamClients() int {
	return int(h.clients.Load())
}

func (h *DashboardHandler) sendView(w io.Writer, v dashboard.View) {
	data, err := json.Marshal(dto.ToDashboardResponse(v))
	if err != nil {
		h.logger.Error("failed to marshal dashboard event", zap.Error(err))
		return
	}
	h.sendEvent(w, SSEMessage{Event: "dashboard", ID: strconv.FormatUint(v.Loads, 10), Data: string(data)})
}

// sendEvent writes an SSE event to the response writer
func (h *DashboardHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

func viewMeta(v dashboard.View) dto.Meta {
	m := dto.Meta{Stale: v.Stale, Source: "store"}
	if v.Snapshot != nil && !v.Snapshot.Authoritative {
		m.Source = "local"
	}
	if v.Err != nil {
		m.Notice = "Dashboard could not be refreshed"
	}
	return m
}
