package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
)

// HouseProvider lists the houses to bill
type HouseProvider interface {
	FindAllIDs(ctx context.Context) ([]int64, error)
}

// BillingRequester enqueues a billing job and returns its id
type BillingRequester interface {
	RequestBilling(ctx context.Context, houseID int64, period billing.Period) (string, error)
}

// MonthlyTriggerConfig holds configuration for the monthly billing trigger
type MonthlyTriggerConfig struct {
	Day    int // day of month, clamped to the month's last day
	Hour   int
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
	Location      *time.Location
}

// DefaultMonthlyTriggerConfig returns default monthly trigger configuration
func DefaultMonthlyTriggerConfig() MonthlyTriggerConfig {
	return MonthlyTriggerConfig{
		Day:           1,
		Hour:          3, // 3am
		Minute:        0,
		CheckInterval: time.Minute,
		Location:      time.UTC,
	}
}

// Validate checks the configuration
func (c MonthlyTriggerConfig) Validate() error {
	if c.Day < 1 || c.Day > 31 {
		return fmt.Errorf("%w: day must be between 1 and 31", ErrInvalidConfig)
	}
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("%w: hour must be between 0 and 23", ErrInvalidConfig)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: minute must be between 0 and 59", ErrInvalidConfig)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// MonthlyBillingTrigger requests billing of the previous month for every
// house once a month
type MonthlyBillingTrigger struct {
	config    MonthlyTriggerConfig
	requester BillingRequester
	houses    HouseProvider
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time

	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	isRunning    bool
	lastRunMonth string // YYYY-MM of the month we last ran in
}

// NewMonthlyBillingTrigger creates a new monthly trigger
func NewMonthlyBillingTrigger(
	config MonthlyTriggerConfig,
	requester BillingRequester,
	houses HouseProvider,
	logger *zap.Logger,
	metrics *Metrics,
) (*MonthlyBillingTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonthlyBillingTrigger{
		config:    config,
		requester: requester,
		houses:    houses,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

// Start starts the trigger
func (c *MonthlyBillingTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Monthly billing trigger started",
		zap.Int("day", c.config.Day),
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger
func (c *MonthlyBillingTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Monthly billing trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *MonthlyBillingTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// shouldRun reports whether now is the configured minute of the month
func (c *MonthlyBillingTrigger) shouldRun(now time.Time) bool {
	now = now.In(c.config.Location)
	day := min(c.config.Day, daysIn(now.Year(), now.Month()))
	return now.Day() == day && now.Hour() == c.config.Hour && now.Minute() == c.config.Minute
}

// checkAndTrigger runs at most once per calendar month
func (c *MonthlyBillingTrigger) checkAndTrigger(ctx context.Context) int {
	now := c.now().In(c.config.Location)
	currentMonth := billing.PeriodOf(now).String()

	c.mu.Lock()
	if c.lastRunMonth == currentMonth || !c.shouldRun(now) {
		c.mu.Unlock()
		return 0
	}
	c.lastRunMonth = currentMonth
	c.mu.Unlock()

	target := billing.PeriodOf(now).Previous()
	c.logger.Info("Triggering monthly billing", zap.String("period", target.String()))
	return c.TriggerPeriod(ctx, target)
}

// TriggerPeriod requests billing of period for every house and returns how
// many jobs were accepted. Failures for one house do not stop the others.
func (c *MonthlyBillingTrigger) TriggerPeriod(ctx context.Context, period billing.Period) int {
	houseIDs, err := c.houses.FindAllIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list houses for monthly billing", zap.Error(err))
		c.metrics.triggered("list_failed")
		return 0
	}

	c.logger.Info("Scheduling monthly billing for houses",
		zap.Int("house_count", len(houseIDs)),
		zap.String("period", period.String()),
	)

	accepted := 0
	for _, houseID := range houseIDs {
		jobID, err := c.requester.RequestBilling(ctx, houseID, period)
		if err != nil {
			c.metrics.triggered("failed")
			c.logger.Error("Failed to schedule monthly billing for house",
				zap.Int64("house_id", houseID),
				zap.String("period", period.String()),
				zap.Error(err),
			)
			continue
		}
		accepted++
		c.metrics.triggered("submitted")
		c.logger.Debug("Monthly billing job scheduled",
			zap.Int64("house_id", houseID),
			zap.String("job_id", jobID),
		)
	}
	return accepted
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
