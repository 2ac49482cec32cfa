package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/cache"
	"github.com/communal/backend/internal/infrastructure/scheduler"
)

type jobFixture struct {
	houses    *MockHouseRepository
	progress  *MockProgressRepository
	results   *cache.InMemoryJobResultStore
	submitter *MockJobSubmitter
	service   *JobService
}

func newJobFixture(t *testing.T) *jobFixture {
	f := &jobFixture{
		houses:    new(MockHouseRepository),
		progress:  new(MockProgressRepository),
		results:   cache.NewInMemoryJobResultStore(),
		submitter: new(MockJobSubmitter),
	}
	t.Cleanup(func() { _ = f.results.Close() })
	f.service = NewJobService(f.houses, f.progress, f.results, f.submitter, JobServiceConfig{MaxDelay: time.Minute}, nil)
	return f
}

func TestJobService_SubmitBillingJob_Success(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	f.houses.On("ExistsByID", ctx, int64(1)).Return(true, nil)
	var created *billing.CalculationProgress
	f.progress.On("Create", ctx, mock.AnythingOfType("*billing.CalculationProgress")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*billing.CalculationProgress) }).
		Return(nil)
	var submitted *scheduler.Job
	f.submitter.On("SubmitJob", mock.AnythingOfType("*scheduler.Job")).
		Run(func(args mock.Arguments) { submitted = args.Get(0).(*scheduler.Job) }).
		Return(nil)

	resp, err := f.service.SubmitBillingJob(ctx, SubmitBillingJobRequest{HouseID: 1, Year: 2024, Month: 9, DelaySeconds: 5})
	require.NoError(t, err)
	assert.Equal(t, StateQueued, resp.Status)

	require.NotNil(t, submitted)
	assert.Equal(t, resp.JobID, submitted.ID.String())
	assert.Equal(t, 5*time.Second, submitted.Delay)
	assert.Equal(t, billing.MustPeriod(2024, 9), submitted.Period)

	require.NotNil(t, created)
	assert.Equal(t, resp.JobID, created.JobID)
	assert.Equal(t, billing.ProgressQueued, created.Status)

	f.progress.On("FindByJobID", ctx, resp.JobID).Return(created, nil)
	view, err := f.service.PollJob(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, view.State)
	assert.Equal(t, "2024-09", view.Period)

	f.houses.AssertExpectations(t)
	f.progress.AssertExpectations(t)
	f.submitter.AssertExpectations(t)
}

func TestJobService_SubmitBillingJob_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitBillingJobRequest
	}{
		{"no house", SubmitBillingJobRequest{HouseID: 0, Year: 2024, Month: 9}},
		{"bad month", SubmitBillingJobRequest{HouseID: 1, Year: 2024, Month: 13}},
		{"negative delay", SubmitBillingJobRequest{HouseID: 1, Year: 2024, Month: 9, DelaySeconds: -1}},
		{"delay too long", SubmitBillingJobRequest{HouseID: 1, Year: 2024, Month: 9, DelaySeconds: 61}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobFixture(t)
			_, err := f.service.SubmitBillingJob(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, shared.IsInvalidInput(err))
			f.submitter.AssertNotCalled(t, "SubmitJob", mock.Anything)
		})
	}
}

func TestJobService_SubmitBillingJob_UnknownHouse(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	f.houses.On("ExistsByID", ctx, int64(9)).Return(false, nil)

	_, err := f.service.SubmitBillingJob(ctx, SubmitBillingJobRequest{HouseID: 9, Year: 2024, Month: 9})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, "House 9 not found", err.Error())
	f.progress.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.submitter.AssertNotCalled(t, "SubmitJob", mock.Anything)
	assert.Equal(t, 0, f.results.Size())
}

func TestJobService_SubmitBillingJob_QueueFull(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	f.houses.On("ExistsByID", ctx, int64(1)).Return(true, nil)
	f.progress.On("Create", ctx, mock.Anything).Return(nil)
	var updated *billing.CalculationProgress
	f.progress.On("Update", ctx, mock.AnythingOfType("*billing.CalculationProgress")).
		Run(func(args mock.Arguments) { updated = args.Get(1).(*billing.CalculationProgress) }).
		Return(nil)
	var submitted *scheduler.Job
	f.submitter.On("SubmitJob", mock.Anything).
		Run(func(args mock.Arguments) { submitted = args.Get(0).(*scheduler.Job) }).
		Return(scheduler.ErrJobQueueFull)

	_, err := f.service.SubmitBillingJob(ctx, SubmitBillingJobRequest{HouseID: 1, Year: 2024, Month: 9})
	require.Error(t, err)
	assert.Equal(t, shared.CodeQueueUnavailable, shared.CodeOf(err))

	require.NotNil(t, updated)
	assert.Equal(t, billing.ProgressError, updated.Status)
	assert.NotEmpty(t, updated.ErrorMessage)

	view, err := f.service.PollJob(ctx, submitted.ID.String())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, view.State)
}

func TestJobService_SubmitBillingJob_ProgressCreateFails(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	f.houses.On("ExistsByID", ctx, int64(1)).Return(true, nil)
	f.progress.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	_, err := f.service.SubmitBillingJob(ctx, SubmitBillingJobRequest{HouseID: 1, Year: 2024, Month: 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	f.submitter.AssertNotCalled(t, "SubmitJob", mock.Anything)
}

func TestJobService_RequestBilling(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	f.houses.On("ExistsByID", ctx, int64(3)).Return(true, nil)
	f.progress.On("Create", ctx, mock.Anything).Return(nil)
	f.submitter.On("SubmitJob", mock.MatchedBy(func(j *scheduler.Job) bool {
		return j.HouseID == 3 && j.Delay == 0 && j.Period == billing.MustPeriod(2024, 8)
	})).Return(nil)

	jobID, err := f.service.RequestBilling(ctx, 3, billing.MustPeriod(2024, 8))
	require.NoError(t, err)
	_, err = uuid.Parse(jobID)
	assert.NoError(t, err)
	f.submitter.AssertExpectations(t)
}

func TestJobService_PollJob(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed id", func(t *testing.T) {
		f := newJobFixture(t)
		view, err := f.service.PollJob(ctx, "not-a-uuid")
		require.NoError(t, err)
		assert.Equal(t, StateUnknown, view.State)
		assert.Equal(t, "not-a-uuid", view.JobID)
		f.progress.AssertNotCalled(t, "FindByJobID", mock.Anything, mock.Anything)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newJobFixture(t)
		id := uuid.New().String()
		f.progress.On("FindByJobID", ctx, id).Return(nil, shared.NotFoundf("no progress"))

		view, err := f.service.PollJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StateUnknown, view.State)
	})

	t.Run("succeeded with result", func(t *testing.T) {
		f := newJobFixture(t)
		id := uuid.New().String()
		bills := []billing.ApartmentBill{{ApartmentID: 10, HouseID: 1, Date: billing.MustPeriod(2024, 9).FirstDay()}}
		require.NoError(t, f.results.Put(ctx, cache.JobRecord{
			JobID:   id,
			State:   cache.JobSucceeded,
			HouseID: 1,
			Period:  billing.MustPeriod(2024, 9),
			Result:  bills,
		}, time.Minute))

		view, err := f.service.PollJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StateSucceeded, view.State)
		require.Len(t, view.Result, 1)
		assert.Equal(t, int64(10), view.Result[0].ApartmentID)
	})

	t.Run("falls back to progress", func(t *testing.T) {
		f := newJobFixture(t)
		id := uuid.New().String()
		p := billing.NewCalculationProgress(id, 1, billing.MustPeriod(2024, 9))
		require.NoError(t, p.MarkFailed("job abandoned: no heartbeat"))
		f.progress.On("FindByJobID", ctx, id).Return(p, nil)

		view, err := f.service.PollJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StateFailed, view.State)
		assert.Equal(t, "job abandoned: no heartbeat", view.Error)
	})

	t.Run("reaped job is failed although the store says running", func(t *testing.T) {
		f := newJobFixture(t)
		id := uuid.New().String()
		require.NoError(t, f.results.Put(ctx, cache.JobRecord{
			JobID:   id,
			State:   cache.JobRunning,
			HouseID: 1,
			Period:  billing.MustPeriod(2024, 9),
		}, time.Hour))
		p := billing.NewCalculationProgress(id, 1, billing.MustPeriod(2024, 9))
		require.NoError(t, p.MarkRunning())
		require.NoError(t, p.MarkFailed("job abandoned: no heartbeat"))
		f.progress.On("FindByJobID", ctx, id).Return(p, nil)

		view, err := f.service.PollJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StateFailed, view.State)
		assert.Equal(t, "job abandoned: no heartbeat", view.Error)
	})

	t.Run("running in both places", func(t *testing.T) {
		f := newJobFixture(t)
		id := uuid.New().String()
		require.NoError(t, f.results.Put(ctx, cache.JobRecord{
			JobID:   id,
			State:   cache.JobRunning,
			HouseID: 1,
			Period:  billing.MustPeriod(2024, 9),
		}, time.Hour))
		p := billing.NewCalculationProgress(id, 1, billing.MustPeriod(2024, 9))
		require.NoError(t, p.MarkRunning())
		f.progress.On("FindByJobID", ctx, id).Return(p, nil)

		view, err := f.service.PollJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StateRunning, view.State)
		assert.Equal(t, "2024-09", view.Period)
	})

	t.Run("progress lookup failure keeps the store state", func(t *testing.T) {
		f := newJobFixture(t)
		id := uuid.New().String()
		require.NoError(t, f.results.Put(ctx, cache.JobRecord{JobID: id, State: cache.JobQueued, HouseID: 1}, time.Hour))
		f.progress.On("FindByJobID", ctx, id).Return(nil, errors.New("timeout"))

		view, err := f.service.PollJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StateQueued, view.State)
	})

	t.Run("storage error", func(t *testing.T) {
		f := newJobFixture(t)
		id := uuid.New().String()
		f.progress.On("FindByJobID", ctx, id).Return(nil, errors.New("timeout"))

		_, err := f.service.PollJob(ctx, id)
		assert.Error(t, err)
	})
}

func TestJobService_Progress(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	f.houses.On("ExistsByID", ctx, int64(1)).Return(true, nil)
	f.houses.On("ExistsByID", ctx, int64(2)).Return(false, nil)
	records := []billing.CalculationProgress{
		*billing.NewCalculationProgress("b", 1, billing.MustPeriod(2024, 9)),
		*billing.NewCalculationProgress("a", 1, billing.MustPeriod(2024, 8)),
	}
	f.progress.On("FindByHouse", ctx, int64(1), DefaultProgressLimit).Return(records, nil)

	got, err := f.service.Progress(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].JobID)
	assert.Equal(t, string(billing.ProgressQueued), got[0].Status)

	_, err = f.service.Progress(ctx, 2, 10)
	assert.True(t, shared.IsNotFound(err))
}
