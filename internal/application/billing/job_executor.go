package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/cache"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/infrastructure/scheduler"
)

// ErrUnsupportedJob is returned for jobs of a kind this executor does not run
var ErrUnsupportedJob = errors.New("unsupported job kind")

// bookkeepingTimeout bounds the final progress and result writes, which run
// even when the job context is already done
const bookkeepingTimeout = 10 * time.Second

// JobExecutorConfig holds executor settings
type JobExecutorConfig struct {
	Heartbeat time.Duration
	ResultTTL time.Duration
}

// JobExecutor runs billing jobs taken from the worker pool. It tracks each
// run in the progress record and the job store, and never retries.
type JobExecutor struct {
	computer BillComputer
	progress billing.ProgressRepository
	results  ResultStore
	config   JobExecutorConfig
	logger   *zap.Logger
}

// NewJobExecutor creates a new JobExecutor
func NewJobExecutor(computer BillComputer, progress billing.ProgressRepository, results ResultStore, config JobExecutorConfig, logger *zap.Logger) *JobExecutor {
	if config.Heartbeat <= 0 {
		config.Heartbeat = 30 * time.Second
	}
	if config.ResultTTL <= 0 {
		config.ResultTTL = DefaultJobServiceConfig().ResultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobExecutor{
		computer: computer,
		progress: progress,
		results:  results,
		config:   config,
		logger:   logger,
	}
}

// Execute waits out the job's delay, computes the bills and records the
// outcome. The computation error, if any, is returned to the worker pool.
// A panic during the run fails the job like any other error.
func (e *JobExecutor) Execute(ctx context.Context, job *scheduler.Job) (err error) {
	if job.Kind != scheduler.JobKindBilling {
		return fmt.Errorf("%w: %s", ErrUnsupportedJob, job.Kind)
	}

	jobID := job.ID.String()
	ctx, log := logger.WithJobID(ctx, e.logger, jobID)
	log = log.With(zap.Int64("house_id", job.HouseID), zap.String("period", job.Period.String()))

	rec := cache.JobRecord{JobID: jobID, HouseID: job.HouseID, Period: job.Period}

	stopHeartbeat := e.startHeartbeat(ctx, jobID)
	defer stopHeartbeat()

	var progress *billing.CalculationProgress
	defer func() {
		if r := recover(); r != nil {
			stopHeartbeat()
			err = fmt.Errorf("billing job panicked: %v", r)
			log.Error("Recovered panic in billing job", zap.Stack("stack"))
			e.finish(ctx, rec, progress, err, log)
		}
	}()

	if err := waitDelay(ctx, job.Delay); err != nil {
		e.finish(ctx, rec, nil, err, log)
		return err
	}

	progress, err = e.progress.FindByJobID(ctx, jobID)
	if err != nil {
		err = fmt.Errorf("failed to load calculation progress: %w", err)
		e.finish(ctx, rec, nil, err, log)
		return err
	}
	if err := progress.MarkRunning(); err != nil {
		e.finish(ctx, rec, nil, err, log)
		return err
	}
	if err := e.progress.Update(ctx, progress); err != nil {
		e.finish(ctx, rec, nil, err, log)
		return err
	}

	rec.State = cache.JobRunning
	rec.UpdatedAt = time.Now()
	if err := e.results.Put(ctx, rec, e.config.ResultTTL); err != nil {
		log.Warn("Failed to record running job", zap.Error(err))
	}

	log.Info("Computing bills")
	bills, err := e.computer.ComputeBills(ctx, job.HouseID, job.Period.Year, job.Period.Month)
	stopHeartbeat()

	e.finish(ctx, rec, progress, err, log, bills...)
	return err
}

// finish stores the terminal state of a run. progress is nil when the run
// failed before the record was loaded; it is then looked up by job id.
func (e *JobExecutor) finish(ctx context.Context, rec cache.JobRecord, progress *billing.CalculationProgress, runErr error, log *zap.Logger, bills ...billing.ApartmentBill) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	if progress == nil {
		p, err := e.progress.FindByJobID(ctx, rec.JobID)
		if err != nil {
			log.Error("Failed to load calculation progress", zap.Error(err))
		}
		progress = p
	}

	if runErr != nil {
		rec.State = cache.JobFailed
		rec.Error = runErr.Error()
		log.Error("Billing job failed", zap.Error(runErr))
	} else {
		rec.State = cache.JobSucceeded
		rec.Result = bills
		if rec.Result == nil {
			rec.Result = []billing.ApartmentBill{}
		}
		log.Info("Billing job succeeded", zap.Int("apartments", len(bills)))
	}
	rec.UpdatedAt = time.Now()

	// Store first: a poll that sees the final progress row then finds the result
	if err := e.results.Put(ctx, rec, e.config.ResultTTL); err != nil {
		log.Error("Failed to record job result", zap.Error(err))
	}

	if progress != nil {
		var transition error
		if runErr != nil {
			transition = progress.MarkFailed(runErr.Error())
		} else {
			transition = progress.MarkDone()
		}
		if transition == nil {
			if err := e.progress.Update(ctx, progress); err != nil {
				if errors.Is(err, shared.ErrInvalidState) {
					log.Warn("Calculation progress was finished elsewhere", zap.Error(err))
				} else {
					log.Error("Failed to update calculation progress", zap.Error(err))
				}
			}
		}
	}

}

// startHeartbeat keeps the progress record fresh until the returned func is
// called; a stopped heartbeat lets the reaper pick the job up
func (e *JobExecutor) startHeartbeat(ctx context.Context, jobID string) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(e.config.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := e.progress.Touch(ctx, jobID, now); err != nil && ctx.Err() == nil {
					e.logger.Warn("Heartbeat failed", zap.String("job_id", jobID), zap.Error(err))
				}
			}
		}
	}()

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		<-done
	}
}

// waitDelay sleeps for d unless ctx ends first
func waitDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ scheduler.JobExecutor = (*JobExecutor)(nil)
