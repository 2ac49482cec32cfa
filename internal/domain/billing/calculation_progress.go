package billing

import (
	"time"

	"github.com/communal/backend/internal/domain/shared"
)

// ProgressStatus is the state of one billing run
type ProgressStatus string

const (
	ProgressQueued  ProgressStatus = "queued"
	ProgressRunning ProgressStatus = "running"
	ProgressDone    ProgressStatus = "done"
	ProgressError   ProgressStatus = "error"
)

// IsValid reports whether the status is known
func (s ProgressStatus) IsValid() bool {
	switch s {
	case ProgressQueued, ProgressRunning, ProgressDone, ProgressError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s ProgressStatus) IsTerminal() bool {
	return s == ProgressDone || s == ProgressError
}

// CalculationProgress records one billing job invocation. It is created when
// the job is submitted and changed once more when the job finishes.
// UpdatedAt doubles as the heartbeat used to detect abandoned jobs.
type CalculationProgress struct {
	ID           int64
	JobID        string
	HouseID      int64
	Year         int
	Month        int
	Status       ProgressStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCalculationProgress creates a queued progress record
func NewCalculationProgress(jobID string, houseID int64, period Period) *CalculationProgress {
	now := time.Now()
	return &CalculationProgress{
		JobID:     jobID,
		HouseID:   houseID,
		Year:      period.Year,
		Month:     period.Month,
		Status:    ProgressQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Period returns the target billing period
func (p *CalculationProgress) Period() Period {
	return Period{Year: p.Year, Month: p.Month}
}

// MarkRunning moves a queued record to running
func (p *CalculationProgress) MarkRunning() error {
	if p.Status != ProgressQueued {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "cannot start a calculation in status %s", p.Status)
	}
	p.Status = ProgressRunning
	p.UpdatedAt = time.Now()
	return nil
}

// MarkDone records a successful run
func (p *CalculationProgress) MarkDone() error {
	if p.Status.IsTerminal() {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "cannot complete a calculation in status %s", p.Status)
	}
	p.Status = ProgressDone
	p.ErrorMessage = ""
	p.UpdatedAt = time.Now()
	return nil
}

// MarkFailed records a failed run with its error message
func (p *CalculationProgress) MarkFailed(message string) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "cannot fail a calculation in status %s", p.Status)
	}
	p.Status = ProgressError
	p.ErrorMessage = message
	p.UpdatedAt = time.Now()
	return nil
}

// Touch refreshes the heartbeat
func (p *CalculationProgress) Touch(now time.Time) {
	p.UpdatedAt = now
}

// IsStale reports whether an unfinished record has not been touched within timeout
func (p *CalculationProgress) IsStale(now time.Time, timeout time.Duration) bool {
	if p.Status.IsTerminal() {
		return false
	}
	return now.Sub(p.UpdatedAt) > timeout
}
