// Package cache holds short-lived shared state of billing jobs: the job
// result store polled by clients and the advisory lock guarding a house and
// period against concurrent recomputation. Both have a Redis and an in-memory
// implementation.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/communal/backend/internal/domain/billing"
)

// JobState is the externally visible state of a billing job
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// IsFinal reports whether the job has finished
func (s JobState) IsFinal() bool {
	return s == JobSucceeded || s == JobFailed
}

// ErrEmptyJobID is returned when a record without a job id is stored
var ErrEmptyJobID = errors.New("cache: job id is required")

// JobRecord is what a poller sees of a billing job
type JobRecord struct {
	JobID     string                  `json:"job_id"`
	State     JobState                `json:"state"`
	HouseID   int64                   `json:"house_id"`
	Period    billing.Period          `json:"period"`
	Result    []billing.ApartmentBill `json:"result,omitempty"`
	Error     string                  `json:"error,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// JobResultStore keeps job records for a limited time
type JobResultStore interface {
	// Put stores or replaces the record of rec.JobID
	Put(ctx context.Context, rec JobRecord, ttl time.Duration) error
	// Get returns the record; ok is false when the id is unknown or expired
	Get(ctx context.Context, jobID string) (rec *JobRecord, ok bool, err error)
	Close() error
}
