package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newTestStoreMetrics(t *testing.T) (*StoreMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewStoreMetrics(provider.Meter("test"), zaptest.NewLogger(t))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestStoreMetrics_RecordCheckout(t *testing.T) {
	m, reader := newTestStoreMetrics(t)
	ctx := context.Background()

	m.RecordCheckout(ctx, "storefront", OutcomeCommitted, 20*time.Millisecond, decimal.NewFromInt(4550))
	m.RecordCheckout(ctx, "caisse", OutcomeQueued, 5*time.Millisecond, decimal.NewFromInt(1000))
	m.RecordCheckout(ctx, "storefront", OutcomeRejected, time.Millisecond, decimal.NewFromInt(9999))

	got := collect(t, reader)
	assert.EqualValues(t, 3, sumOf(t, got["checkout_total"]))
	assert.EqualValues(t, 5550, sumOf(t, got["sales_amount_total"]))
	assert.Contains(t, got, "checkout_duration_seconds")
}

func TestStoreMetrics_DashboardAndOffline(t *testing.T) {
	m, reader := newTestStoreMetrics(t)
	ctx := context.Background()

	m.RecordDashboardLoad(ctx, "poll", "store", 10*time.Millisecond)
	m.RecordDashboardLoad(ctx, "push", "local", 10*time.Millisecond)
	m.RecordStockRead(ctx, "static")
	m.RecordOfflineQueued(ctx, "caisse")
	m.RecordOfflineReconciled(ctx, OutcomeCommitted)
	m.RecordOfflinePending(ctx, 3)

	got := collect(t, reader)
	assert.EqualValues(t, 2, sumOf(t, got["dashboard_loads_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["stock_reads_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["offline_orders_queued_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["offline_orders_reconciled_total"]))

	gauge, ok := got["offline_orders_pending"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.EqualValues(t, 3, gauge.DataPoints[0].Value)
}

func TestStoreMetrics_NilIsNoop(t *testing.T) {
	var m *StoreMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordCheckout(ctx, "storefront", OutcomeCommitted, time.Second, decimal.Zero)
		m.RecordDashboardLoad(ctx, "manual", "store", time.Second)
		m.RecordStockRead(ctx, "store")
		m.RecordOfflineQueued(ctx, "caisse")
		m.RecordOfflineReconciled(ctx, OutcomeFailed)
		m.RecordOfflinePending(ctx, 0)
	})
}

func TestProviders_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	mp, err := NewMeterProvider(ctx, MetricsConfig{ServiceName: "farmstore"}, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	tp, err := NewTracerProvider(ctx, Config{ServiceName: "farmstore"}, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
