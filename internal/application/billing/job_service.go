package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/cache"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/infrastructure/scheduler"
	"github.com/communal/backend/internal/infrastructure/telemetry"
)

// DefaultProgressLimit caps Progress listings
const DefaultProgressLimit = 50

// JobServiceConfig holds job lifecycle settings
type JobServiceConfig struct {
	MaxDelay  time.Duration
	ResultTTL time.Duration
}

// DefaultJobServiceConfig returns default job settings
func DefaultJobServiceConfig() JobServiceConfig {
	return JobServiceConfig{
		MaxDelay:  5 * time.Minute,
		ResultTTL: 24 * time.Hour,
	}
}

// JobService submits billing jobs and reports their state
type JobService struct {
	houses    housing.HouseRepository
	progress  billing.ProgressRepository
	results   ResultStore
	submitter JobSubmitter
	config    JobServiceConfig
	logger    *zap.Logger
}

// NewJobService creates a new JobService
func NewJobService(
	houses housing.HouseRepository,
	progress billing.ProgressRepository,
	results ResultStore,
	submitter JobSubmitter,
	config JobServiceConfig,
	logger *zap.Logger,
) *JobService {
	defaults := DefaultJobServiceConfig()
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.ResultTTL <= 0 {
		config.ResultTTL = defaults.ResultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{
		houses:    houses,
		progress:  progress,
		results:   results,
		submitter: submitter,
		config:    config,
		logger:    logger,
	}
}

// SubmitBillingJob validates the request, records the job as queued and
// hands it to the worker pool. Nothing is queued for an unknown house.
func (s *JobService) SubmitBillingJob(ctx context.Context, req SubmitBillingJobRequest) (*SubmitBillingJobResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_job", "submit")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrHouseID, req.HouseID)

	resp, err := s.submit(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrJobID, resp.JobID)
	telemetry.SetOK(span)
	return resp, nil
}

func (s *JobService) submit(ctx context.Context, req SubmitBillingJobRequest) (*SubmitBillingJobResponse, error) {
	if req.HouseID <= 0 {
		return nil, shared.InvalidInputf("House id must be positive")
	}
	period, err := billing.NewPeriod(req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	if req.DelaySeconds < 0 {
		return nil, shared.InvalidInputf("Delay cannot be negative")
	}
	delay := time.Duration(req.DelaySeconds) * time.Second
	if delay > s.config.MaxDelay {
		return nil, shared.InvalidInputf("Delay cannot exceed %d seconds", int(s.config.MaxDelay/time.Second))
	}

	exists, err := s.houses.ExistsByID(ctx, req.HouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check house: %w", err)
	}
	if !exists {
		return nil, shared.NotFoundf("House %d not found", req.HouseID)
	}

	job := scheduler.NewBillingJob(req.HouseID, period, delay)
	jobID := job.ID.String()
	log := logger.FromContextOr(ctx, s.logger).With(
		zap.String("job_id", jobID),
		zap.Int64("house_id", req.HouseID),
		zap.String("period", period.String()),
	)

	rec := cache.JobRecord{JobID: jobID, State: cache.JobQueued, HouseID: req.HouseID, Period: period}
	if err := s.results.Put(ctx, rec, s.config.ResultTTL); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}

	progress := billing.NewCalculationProgress(jobID, req.HouseID, period)
	if err := s.progress.Create(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to create calculation progress: %w", err)
	}

	if err := s.submitter.SubmitJob(job); err != nil {
		log.Warn("Billing job rejected by worker pool", zap.Error(err))
		s.abandon(ctx, rec, progress, "job could not be queued: "+err.Error())
		return nil, shared.NewDomainErrorf(shared.CodeQueueUnavailable, "Billing job could not be queued: %s", err)
	}

	log.Info("Billing job submitted", zap.Duration("delay", delay))
	return &SubmitBillingJobResponse{JobID: jobID, Status: StateQueued}, nil
}

// abandon marks a job that never reached a worker as failed
func (s *JobService) abandon(ctx context.Context, rec cache.JobRecord, progress *billing.CalculationProgress, message string) {
	if err := progress.MarkFailed(message); err == nil {
		if err := s.progress.Update(ctx, progress); err != nil {
			s.logger.Error("Failed to mark unqueued job as failed", zap.String("job_id", rec.JobID), zap.Error(err))
		}
	}
	rec.State = cache.JobFailed
	rec.Error = message
	rec.UpdatedAt = time.Now()
	if err := s.results.Put(ctx, rec, s.config.ResultTTL); err != nil {
		s.logger.Error("Failed to record unqueued job", zap.String("job_id", rec.JobID), zap.Error(err))
	}
}

// RequestBilling submits an immediate billing job for a house and period
func (s *JobService) RequestBilling(ctx context.Context, houseID int64, period billing.Period) (string, error) {
	resp, err := s.SubmitBillingJob(ctx, SubmitBillingJobRequest{
		HouseID: houseID,
		Year:    period.Year,
		Month:   period.Month,
	})
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// PollJob reports the state of a job. Malformed and unknown ids yield the
// unknown state, not an error. A final job store record wins; otherwise the
// progress record is consulted, so jobs that expired from the store or were
// failed by the reaper still report how they ended.
func (s *JobService) PollJob(ctx context.Context, jobID string) (*JobStatusView, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return &JobStatusView{JobID: jobID, State: StateUnknown}, nil
	}
	jobID = id.String()

	rec, ok, err := s.results.Get(ctx, jobID)
	if err != nil {
		s.logger.Warn("Job store lookup failed, falling back to progress", zap.String("job_id", jobID), zap.Error(err))
	}
	if ok && rec.State.IsFinal() {
		return viewFromRecord(rec), nil
	}

	progress, err := s.progress.FindByJobID(ctx, jobID)
	if err != nil {
		if ok {
			s.logger.Warn("Progress lookup failed, reporting job store state", zap.String("job_id", jobID), zap.Error(err))
			return viewFromRecord(rec), nil
		}
		if errors.Is(err, shared.ErrNotFound) {
			return &JobStatusView{JobID: jobID, State: StateUnknown}, nil
		}
		return nil, fmt.Errorf("failed to load calculation progress: %w", err)
	}
	if ok && !progress.Status.IsTerminal() {
		return viewFromRecord(rec), nil
	}
	return viewFromProgress(progress), nil
}

// Progress lists the progress records of a house, newest first
func (s *JobService) Progress(ctx context.Context, houseID int64, limit int) ([]ProgressResponse, error) {
	if limit <= 0 || limit > DefaultProgressLimit {
		limit = DefaultProgressLimit
	}
	exists, err := s.houses.ExistsByID(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check house: %w", err)
	}
	if !exists {
		return nil, shared.NotFoundf("House %d not found", houseID)
	}

	records, err := s.progress.FindByHouse(ctx, houseID, limit)
	if err != nil {
		return nil, err
	}
	return ToProgressResponses(records), nil
}

var _ scheduler.BillingRequester = (*JobService)(nil)
