package billing

import (
	"context"
	"time"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/infrastructure/cache"
	"github.com/communal/backend/internal/infrastructure/scheduler"
)

// Locker guards a house and period against concurrent computation
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// ResultStore keeps the pollable state and payload of billing jobs
type ResultStore interface {
	Put(ctx context.Context, rec cache.JobRecord, ttl time.Duration) error
	Get(ctx context.Context, jobID string) (*cache.JobRecord, bool, error)
}

// Metrics records the outcome of one bill computation
type Metrics interface {
	RecordRun(ctx context.Context, outcome string, d time.Duration, apartments, absentMeters int)
}

// JobSubmitter hands jobs to the worker pool
type JobSubmitter interface {
	SubmitJob(job *scheduler.Job) error
}

// BillComputer computes and stores the bills of one house for one month
type BillComputer interface {
	ComputeBills(ctx context.Context, houseID int64, year, month int) ([]billing.ApartmentBill, error)
}

type noopMetrics struct{}

func (noopMetrics) RecordRun(context.Context, string, time.Duration, int, int) {}
