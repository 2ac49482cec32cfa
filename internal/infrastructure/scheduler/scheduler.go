package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind identifies what a job does
type JobKind string

const (
	JobKindBilling JobKind = "billing"
)

// Job is one unit of work for the worker pool
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	HouseID     int64
	Period      billing.Period
	Delay       time.Duration // waited by the executor before computing
	Status      JobStatus
	Error       string
	SubmittedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewBillingJob creates a pending billing job for a house and period
func NewBillingJob(houseID int64, period billing.Period, delay time.Duration) *Job {
	return &Job{
		ID:          uuid.New(),
		Kind:        JobKindBilling,
		HouseID:     houseID,
		Period:      period,
		Delay:       delay,
		Status:      JobStatusPending,
		SubmittedAt: time.Now(),
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Duration returns how long the job ran, zero until it completes
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// JobExecutor is the interface for executing jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 4,
		QueueSize:         100,
		JobTimeout:        10 * time.Minute,
	}
}

// Validate checks the configuration
func (c SchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("%w: max concurrent jobs must be positive", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Scheduler runs submitted jobs on a fixed pool of workers. Jobs are not
// retried; a failed job stays failed.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger
	metrics  *Metrics

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithMetrics exports queue and job metrics
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: executor is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.jobs = make(chan *Job, s.config.QueueSize)
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, s.jobs, i)
	}

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop stops accepting jobs and waits for queued and running jobs to
// finish. When ctx expires first, running jobs are cancelled and the
// remaining queue is dropped.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		s.logger.Info("Job scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out, cancelling running jobs")
		err = ctx.Err()
	}

	if s.cancel != nil {
		s.cancel()
	}
	return err
}

// IsRunning reports whether the scheduler accepts jobs
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// QueueDepth returns the number of jobs waiting for a worker
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		s.metrics.jobRejected("not_running")
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.metrics.setQueueDepth(len(s.jobs))
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Int64("house_id", job.HouseID),
			zap.String("period", job.Period.String()),
		)
		return nil
	default:
		s.metrics.jobRejected("queue_full")
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, jobs <-chan *Job, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-jobs:
			if !ok {
				s.logger.Debug("Job channel closed", zap.Int("worker_id", workerID))
				return
			}
			s.metrics.setQueueDepth(len(jobs))
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start()
	s.logger.Info("Processing job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.Int64("house_id", job.HouseID),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.metrics.jobFinished(job, "failed")
		s.logger.Error("Job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)
		return
	}

	job.Complete()
	s.metrics.jobFinished(job, "success")
	s.logger.Info("Job completed successfully",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.Duration("duration", job.Duration()),
	)
}

// execute runs the executor, turning a panic into an error so one bad job
// does not take a worker down
func (s *Scheduler) execute(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return s.executor.Execute(ctx, job)
}
