package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor is given no meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Billing run outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeConflict   = "conflict"
	OutcomeFailed     = "failed"
	OutcomeBadRequest = "invalid_input"
)

// BillingMetrics records billing run statistics.
type BillingMetrics struct {
	runsTotal         *Counter
	runDuration       *Histogram
	apartmentsTotal   *Counter
	absentMetersTotal *Counter
}

// NewBillingMetrics creates the billing instruments on meter.
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		bm  BillingMetrics
		err error
	)
	if bm.runsTotal, err = NewCounter(meter, "billing_runs_total", "Total number of billing runs by outcome", "{runs}"); err != nil {
		return nil, err
	}
	bm.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing_run_duration_seconds",
		Description: "Duration of one billing run",
		Unit:        "s",
		Boundaries:  RunDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	if bm.apartmentsTotal, err = NewCounter(meter, "billing_apartments_total", "Total number of apartments priced", "{apartments}"); err != nil {
		return nil, err
	}
	if bm.absentMetersTotal, err = NewCounter(meter, "billing_absent_meters_total", "Total number of meters skipped for missing readings", "{meters}"); err != nil {
		return nil, err
	}
	return &bm, nil
}

// RecordRun records one billing run. A nil receiver is a no-op.
func (m *BillingMetrics) RecordRun(ctx context.Context, outcome string, d time.Duration, apartments, absentMeters int) {
	if m == nil {
		return
	}
	attr := AttrOutcome.String(outcome)
	m.runsTotal.Inc(ctx, attr)
	m.runDuration.RecordDuration(ctx, d, attr)
	if apartments > 0 {
		m.apartmentsTotal.Add(ctx, int64(apartments))
	}
	if absentMeters > 0 {
		m.absentMetersTotal.Add(ctx, int64(absentMeters))
	}
}
