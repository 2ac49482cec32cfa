package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

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
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	_, err := NewBillingMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestBillingMetrics_RecordRun(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBillingMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordRun(ctx, OutcomeSuccess, 120*time.Millisecond, 4, 1)
	bm.RecordRun(ctx, OutcomeSuccess, 80*time.Millisecond, 2, 0)
	bm.RecordRun(ctx, OutcomeNotFound, time.Millisecond, 0, 0)

	metrics := collect(t, reader)
	assert.Equal(t, int64(3), sumOf(t, metrics["billing_runs_total"]))
	assert.Equal(t, int64(6), sumOf(t, metrics["billing_apartments_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["billing_absent_meters_total"]))

	hist, ok := metrics["billing_run_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestBillingMetrics_NilReceiver(t *testing.T) {
	var bm *BillingMetrics
	assert.NotPanics(t, func() {
		bm.RecordRun(context.Background(), OutcomeFailed, time.Second, 1, 1)
	})
}
