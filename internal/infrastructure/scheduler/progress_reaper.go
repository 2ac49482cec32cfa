package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/shared"
)

// AbandonedJobMessage is written to progress records nobody finished
const AbandonedJobMessage = "job abandoned: no heartbeat"

// ProgressStore is the part of billing.ProgressRepository the reaper needs
type ProgressStore interface {
	FindStale(ctx context.Context, before time.Time) ([]billing.CalculationProgress, error)
	Update(ctx context.Context, p *billing.CalculationProgress) error
}

// ProgressReaperConfig holds reaper configuration
type ProgressReaperConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

// Validate checks the configuration
func (c ProgressReaperConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: reaper interval must be positive", ErrInvalidConfig)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("%w: stale timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// ProgressReaper fails queued or running progress records whose heartbeat stopped
type ProgressReaper struct {
	config  ProgressReaperConfig
	store   ProgressStore
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewProgressReaper creates a reaper
func NewProgressReaper(config ProgressReaperConfig, store ProgressStore, logger *zap.Logger, metrics *Metrics) (*ProgressReaper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressReaper{
		config:  config,
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Start starts the periodic sweep
func (r *ProgressReaper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.runLoop(ctx)

	r.logger.Info("Progress reaper started",
		zap.Duration("interval", r.config.Interval),
		zap.Duration("stale_after", r.config.StaleAfter),
	)
	return nil
}

// Stop stops the sweep
func (r *ProgressReaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Progress reaper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *ProgressReaper) runLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("Progress sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep marks every stale record as failed and returns how many were changed.
// A record finished concurrently by its worker is left alone.
func (r *ProgressReaper) Sweep(ctx context.Context) (int, error) {
	before := r.now().Add(-r.config.StaleAfter)

	stale, err := r.store.FindStale(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale progress: %w", err)
	}

	reaped := 0
	var errs []error
	for i := range stale {
		p := &stale[i]
		if err := p.MarkFailed(AbandonedJobMessage); err != nil {
			continue
		}
		if err := r.store.Update(ctx, p); err != nil {
			if errors.Is(err, shared.ErrInvalidState) {
				continue
			}
			errs = append(errs, fmt.Errorf("progress %d: %w", p.ID, err))
			continue
		}
		reaped++
		r.logger.Warn("Marked abandoned billing job as failed",
			zap.Int64("progress_id", p.ID),
			zap.String("job_id", p.JobID),
			zap.Int64("house_id", p.HouseID),
		)
	}
	r.metrics.progressReaped(reaped)
	return reaped, errors.Join(errs...)
}
