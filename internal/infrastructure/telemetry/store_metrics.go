package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Checkout outcomes
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeQueued    = "queued"
	OutcomeOrphaned  = "orphaned"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// StoreMetrics records checkout, dashboard and offline activity.
// A nil *StoreMetrics is valid and records nothing.
type StoreMetrics struct {
	logger *zap.Logger

	checkoutTotal     *Counter
	checkoutDuration  *Histogram
	salesAmountTotal  *Counter
	dashboardLoads    *Counter
	dashboardDuration *Histogram
	stockReads        *Counter
	offlineQueued     *Counter
	offlineReconciled *Counter
	offlinePending    *Gauge
}

// NewStoreMetrics creates the store instruments on meter
func NewStoreMetrics(meter metric.Meter, logger *zap.Logger) (*StoreMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &StoreMetrics{logger: logger}

	var err error
	if m.checkoutTotal, err = NewCounter(meter, "checkout_total", "Checkout attempts by channel and outcome", "{checkout}"); err != nil {
		return nil, err
	}
	if m.checkoutDuration, err = NewHistogram(meter, "checkout_duration_seconds", "Checkout latency", "s", DurationBuckets...); err != nil {
		return nil, err
	}
	if m.salesAmountTotal, err = NewCounter(meter, "sales_amount_total", "Committed sales amount in whole currency units", "{XOF}"); err != nil {
		return nil, err
	}
	if m.dashboardLoads, err = NewCounter(meter, "dashboard_loads_total", "Dashboard loads by trigger and source", "{load}"); err != nil {
		return nil, err
	}
	if m.dashboardDuration, err = NewHistogram(meter, "dashboard_load_duration_seconds", "Dashboard load latency", "s", DurationBuckets...); err != nil {
		return nil, err
	}
	if m.stockReads, err = NewCounter(meter, "stock_reads_total", "Stock ledger reads by source", "{read}"); err != nil {
		return nil, err
	}
	if m.offlineQueued, err = NewCounter(meter, "offline_orders_queued_total", "Orders recorded locally while the store was unreachable", "{order}"); err != nil {
		return nil, err
	}
	if m.offlineReconciled, err = NewCounter(meter, "offline_orders_reconciled_total", "Offline orders replayed by outcome", "{order}"); err != nil {
		return nil, err
	}
	if m.offlinePending, err = NewGauge(meter, "offline_orders_pending", "Offline orders waiting to be replayed", "{order}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordCheckout records one checkout attempt
func (m *StoreMetrics) RecordCheckout(ctx context.Context, channel, outcome string, d time.Duration, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.checkoutTotal.Inc(ctx, AttrChannel.String(channel), AttrOutcome.String(outcome))
	m.checkoutDuration.RecordDuration(ctx, d, AttrChannel.String(channel), AttrOutcome.String(outcome))
	if outcome == OutcomeCommitted || outcome == OutcomeQueued {
		m.salesAmountTotal.Add(ctx, amount.IntPart(), AttrChannel.String(channel))
	}
	if outcome == OutcomeOrphaned {
		m.logger.Warn("checkout left an orphaned order row", zap.String("channel", channel))
	}
}

// RecordDashboardLoad records one dashboard reload
func (m *StoreMetrics) RecordDashboardLoad(ctx context.Context, trigger, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.dashboardLoads.Inc(ctx, AttrTrigger.String(trigger), AttrSource.String(source))
	m.dashboardDuration.RecordDuration(ctx, d, AttrTrigger.String(trigger))
}

// RecordStockRead records where a stock snapshot came from
func (m *StoreMetrics) RecordStockRead(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.stockReads.Inc(ctx, AttrSource.String(source))
}

// RecordOfflineQueued records an order kept locally
func (m *StoreMetrics) RecordOfflineQueued(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.offlineQueued.Inc(ctx, AttrChannel.String(channel))
}

// RecordOfflineReconciled records the result of replaying one offline order
func (m *StoreMetrics) RecordOfflineReconciled(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.offlineReconciled.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordOfflinePending records how many offline orders wait for replay
func (m *StoreMetrics) RecordOfflinePending(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.offlinePending.Record(ctx, int64(n))
}
