package dto

import (
	"time"

	"github.com/farmstore/backend/internal/application/dashboard"
	appreport "github.com/farmstore/backend/internal/application/report"
	"github.com/farmstore/backend/internal/domain/report"
)

// DashboardResponse is the dashboard view
type DashboardResponse struct {
	State string `json:"state"`
	// Stale is set while the store is unreachable; the figures are the last known ones
	Stale bool `json:"stale"`
	// Error is shown to the user when the latest load failed for a reason other than connectivity
	Error         string                       `json:"error,omitempty"`
	Authoritative bool                         `json:"authoritative"`
	Summaries     []appreport.WindowSummary    `json:"summaries"`
	TopProducts   []report.ProductSalesRanking `json:"top_products"`
	RecentOrders  []OrderResponse              `json:"recent_orders"`
	Trend         []report.DailySalesTrend     `json:"trend"`
	GeneratedAt   *time.Time                   `json:"generated_at,omitempty"`
	LastLoadedAt  *time.Time                   `json:"last_loaded_at,omitempty"`
	LastAttemptAt *time.Time                   `json:"last_attempt_at,omitempty"`
}

// ToDashboardResponse converts a dashboard view
func ToDashboardResponse(v dashboard.View) DashboardResponse {
	out := DashboardResponse{
		State:         string(v.State),
		Stale:         v.Stale,
		Summaries:     []appreport.WindowSummary{},
		TopProducts:   []report.ProductSalesRanking{},
		RecentOrders:  []OrderResponse{},
		Trend:         []report.DailySalesTrend{},
		LastLoadedAt:  timePtr(v.LastLoadedAt),
		LastAttemptAt: timePtr(v.LastAttemptAt),
	}
	if v.Err != nil {
		out.Error = v.Err.Error()
	}
	if s := v.Snapshot; s != nil {
		out.Authoritative = s.Authoritative
		out.GeneratedAt = timePtr(s.GeneratedAt)
		if s.Summaries != nil {
			out.Summaries = s.Summaries
		}
		if s.TopProducts != nil {
			out.TopProducts = s.TopProducts
		}
		if s.Trend != nil {
			out.Trend = s.Trend
		}
		out.RecentOrders = ToOrderResponses(s.RecentOrders)
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
