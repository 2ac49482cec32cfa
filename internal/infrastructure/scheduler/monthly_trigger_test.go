package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communal/backend/internal/domain/billing"
)

type stubHouses struct {
	ids []int64
	err error
}

func (s stubHouses) FindAllIDs(ctx context.Context) ([]int64, error) {
	return s.ids, s.err
}

type recordingRequester struct {
	mu       sync.Mutex
	requests []string
	failFor  int64
}

func (r *recordingRequester) RequestBilling(ctx context.Context, houseID int64, period billing.Period) (string, error) {
	if houseID == r.failFor {
		return "", errors.New("queue full")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, fmt.Sprintf("%d@%s", houseID, period))
	return fmt.Sprintf("job-%d", houseID), nil
}

func newTrigger(t *testing.T, cfg MonthlyTriggerConfig, req BillingRequester, houses HouseProvider, m *Metrics) *MonthlyBillingTrigger {
	t.Helper()
	trigger, err := NewMonthlyBillingTrigger(cfg, req, houses, newTestLogger(), m)
	require.NoError(t, err)
	return trigger
}

func TestMonthlyTriggerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MonthlyTriggerConfig)
	}{
		{"day zero", func(c *MonthlyTriggerConfig) { c.Day = 0 }},
		{"day 32", func(c *MonthlyTriggerConfig) { c.Day = 32 }},
		{"hour 24", func(c *MonthlyTriggerConfig) { c.Hour = 24 }},
		{"minute 60", func(c *MonthlyTriggerConfig) { c.Minute = 60 }},
		{"no interval", func(c *MonthlyTriggerConfig) { c.CheckInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMonthlyTriggerConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestMonthlyBillingTrigger_ShouldRun(t *testing.T) {
	cfg := DefaultMonthlyTriggerConfig()
	cfg.Day = 31
	cfg.Hour = 2
	cfg.Minute = 30
	trigger := newTrigger(t, cfg, &recordingRequester{}, stubHouses{}, nil)

	tests := []struct {
		name     string
		time     time.Time
		expected bool
	}{
		{"Exact match", time.Date(2024, 1, 31, 2, 30, 0, 0, time.UTC), true},
		{"Clamped to end of February", time.Date(2024, 2, 29, 2, 30, 0, 0, time.UTC), true},
		{"Clamped to end of April", time.Date(2024, 4, 30, 2, 30, 0, 0, time.UTC), true},
		{"Wrong day", time.Date(2024, 1, 30, 2, 30, 0, 0, time.UTC), false},
		{"Wrong hour", time.Date(2024, 1, 31, 3, 30, 0, 0, time.UTC), false},
		{"Wrong minute", time.Date(2024, 1, 31, 2, 31, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, trigger.shouldRun(tt.time))
		})
	}
}

func TestMonthlyBillingTrigger_RunsOncePerMonthForPreviousPeriod(t *testing.T) {
	req := &recordingRequester{}
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	trigger := newTrigger(t, DefaultMonthlyTriggerConfig(), req, stubHouses{ids: []int64{1, 2}}, metrics)

	now := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	trigger.now = func() time.Time { return now }

	ctx := context.Background()
	assert.Equal(t, 2, trigger.checkAndTrigger(ctx))
	assert.Equal(t, 0, trigger.checkAndTrigger(ctx), "second check in the same month must not run")

	assert.Equal(t, []string{"1@2023-12", "2@2023-12"}, req.requests)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.triggerTotal.WithLabelValues("submitted")))

	now = time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, trigger.checkAndTrigger(ctx))
	assert.Equal(t, "2@2024-01", req.requests[3])
}

func TestMonthlyBillingTrigger_SkipsOutsideWindow(t *testing.T) {
	req := &recordingRequester{}
	trigger := newTrigger(t, DefaultMonthlyTriggerConfig(), req, stubHouses{ids: []int64{1}}, nil)
	trigger.now = func() time.Time { return time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC) }

	assert.Equal(t, 0, trigger.checkAndTrigger(context.Background()))
	assert.Empty(t, req.requests)
}

func TestMonthlyBillingTrigger_TriggerPeriod(t *testing.T) {
	t.Run("continues after a failing house", func(t *testing.T) {
		req := &recordingRequester{failFor: 2}
		trigger := newTrigger(t, DefaultMonthlyTriggerConfig(), req, stubHouses{ids: []int64{1, 2, 3}}, nil)

		accepted := trigger.TriggerPeriod(context.Background(), billing.MustPeriod(2024, 9))
		assert.Equal(t, 2, accepted)
		assert.Equal(t, []string{"1@2024-09", "3@2024-09"}, req.requests)
	})

	t.Run("house listing failure schedules nothing", func(t *testing.T) {
		req := &recordingRequester{}
		trigger := newTrigger(t, DefaultMonthlyTriggerConfig(), req, stubHouses{err: errors.New("db down")}, nil)

		assert.Equal(t, 0, trigger.TriggerPeriod(context.Background(), billing.MustPeriod(2024, 9)))
		assert.Empty(t, req.requests)
	})
}

func TestMonthlyBillingTrigger_StartStop(t *testing.T) {
	cfg := DefaultMonthlyTriggerConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	trigger := newTrigger(t, cfg, &recordingRequester{}, stubHouses{}, nil)

	ctx := context.Background()
	require.NoError(t, trigger.Start(ctx))
	require.NoError(t, trigger.Start(ctx))

	time.Sleep(30 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))
	require.NoError(t, trigger.Stop(stopCtx))
}
