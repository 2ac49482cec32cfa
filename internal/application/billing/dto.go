package billing

import (
	"encoding/json"
	"time"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/infrastructure/cache"
)

// Poll states. The first four mirror cache.JobState.
const (
	StateQueued    = string(cache.JobQueued)
	StateRunning   = string(cache.JobRunning)
	StateSucceeded = string(cache.JobSucceeded)
	StateFailed    = string(cache.JobFailed)
	StateUnknown   = "unknown"
)

// SubmitBillingJobRequest asks for an asynchronous bill computation.
// Handlers bind their own parameters and SubmitBillingJob validates.
type SubmitBillingJobRequest struct {
	HouseID      int64
	Year         int
	Month        int
	DelaySeconds int
}

// SubmitBillingJobResponse carries the id to poll
type SubmitBillingJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusView is what a poller sees of a job
type JobStatusView struct {
	JobID   string                  `json:"job_id"`
	State   string                  `json:"state"`
	HouseID int64                   `json:"house_id,omitempty"`
	Period  string                  `json:"period,omitempty"`
	Result  []billing.ApartmentBill `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// MarshalJSON emits result whenever it is set, so a succeeded job with no
// apartments reports an empty list. The fallback view built from a progress
// record has no result and omits the key.
func (v JobStatusView) MarshalJSON() ([]byte, error) {
	type plain JobStatusView
	if v.Result == nil {
		return json.Marshal(plain(v))
	}
	return json.Marshal(struct {
		plain
		Result []billing.ApartmentBill `json:"result"`
	}{plain: plain(v), Result: v.Result})
}

// ProgressResponse is the API view of a progress record
type ProgressResponse struct {
	ID           int64     `json:"id"`
	JobID        string    `json:"job_id"`
	HouseID      int64     `json:"house_id"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToProgressResponse converts a domain progress record
func ToProgressResponse(p *billing.CalculationProgress) ProgressResponse {
	return ProgressResponse{
		ID:           p.ID,
		JobID:        p.JobID,
		HouseID:      p.HouseID,
		Year:         p.Year,
		Month:        p.Month,
		Status:       string(p.Status),
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ToProgressResponses converts a slice of progress records
func ToProgressResponses(records []billing.CalculationProgress) []ProgressResponse {
	out := make([]ProgressResponse, len(records))
	for i := range records {
		out[i] = ToProgressResponse(&records[i])
	}
	return out
}

// viewFromRecord builds a poll view from a job store record
func viewFromRecord(rec *cache.JobRecord) *JobStatusView {
	view := &JobStatusView{
		JobID:   rec.JobID,
		State:   string(rec.State),
		HouseID: rec.HouseID,
		Period:  rec.Period.String(),
		Result:  rec.Result,
		Error:   rec.Error,
	}
	if rec.State == cache.JobSucceeded && view.Result == nil {
		view.Result = []billing.ApartmentBill{}
	}
	return view
}

// viewFromProgress builds a poll view from the progress record when the job
// store no longer has the job. Only the status survives there.
func viewFromProgress(p *billing.CalculationProgress) *JobStatusView {
	view := &JobStatusView{
		JobID:   p.JobID,
		HouseID: p.HouseID,
		Period:  p.Period().String(),
	}
	switch p.Status {
	case billing.ProgressQueued:
		view.State = StateQueued
	case billing.ProgressRunning:
		view.State = StateRunning
	case billing.ProgressDone:
		view.State = StateSucceeded
	case billing.ProgressError:
		view.State = StateFailed
		view.Error = p.ErrorMessage
	default:
		view.State = StateUnknown
	}
	return view
}
