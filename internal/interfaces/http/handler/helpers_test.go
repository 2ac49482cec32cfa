package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appbilling "github.com/communal/backend/internal/application/billing"
	"github.com/communal/backend/internal/application/housing"
	"github.com/communal/backend/internal/infrastructure/cache"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/infrastructure/persistence"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
	"github.com/communal/backend/internal/infrastructure/scheduler"
	"github.com/communal/backend/internal/interfaces/http/dto"
	"github.com/communal/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// recordingSubmitter stands in for the worker pool
type recordingSubmitter struct {
	mu   sync.Mutex
	jobs []*scheduler.Job
	err  error
}

func (s *recordingSubmitter) SubmitJob(job *scheduler.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *recordingSubmitter) submitted() []*scheduler.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*scheduler.Job(nil), s.jobs...)
}

var errPoolFull = errors.New("queue is full")

type testAPI struct {
	t         *testing.T
	db        *gorm.DB
	engine    *gin.Engine
	submitter *recordingSubmitter
	results   *cache.InMemoryJobResultStore
	executor  *appbilling.JobExecutor
}

// newTestAPI wires the real services over an in-memory sqlite database and
// mounts every handler the way the router does
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	houses := persistence.NewGormHouseRepository(db)
	apartments := persistence.NewGormApartmentRepository(db)
	meters := persistence.NewGormMeterRepository(db)
	meterTypes := persistence.NewGormMeterTypeRepository(db)
	tariffs := persistence.NewGormTariffRepository(db)
	bills := persistence.NewGormUtilityBillRepository(db)
	progress := persistence.NewGormProgressRepository(db)

	results := cache.NewInMemoryJobResultStore()
	t.Cleanup(func() { _ = results.Close() })
	submitter := &recordingSubmitter{}

	log := zap.NewNop()
	billingSvc := appbilling.NewBillingService(persistence.NewGormTransactionScope(db), cache.NewInMemoryLocker(), nil, appbilling.BillingServiceConfig{}, log)
	jobSvc := appbilling.NewJobService(houses, progress, results, submitter, appbilling.JobServiceConfig{MaxDelay: time.Minute}, log)
	executor := appbilling.NewJobExecutor(billingSvc, progress, results, appbilling.JobExecutorConfig{}, log)
	housingSvc := housing.NewHousingService(houses, apartments, meters, meterTypes, log)
	tariffSvc := housing.NewTariffService(tariffs, meterTypes)
	billQuery := housing.NewBillQueryService(houses, apartments, bills)

	houseH := NewHouseHandler(housingSvc)
	aptH := NewApartmentHandler(housingSvc, billQuery)
	meterH := NewMeterHandler(housingSvc)
	tariffH := NewTariffHandler(tariffSvc)
	billingH := NewBillingHandler(jobSvc, billingSvc)
	stmtH := NewStatementHandler(billQuery)

	engine := gin.New()
	engine.Use(middleware.RequestID(), logger.GinMiddleware(log), logger.Recovery(log))
	api := engine.Group("/api/v1")
	api.GET("/houses", houseH.List)
	api.POST("/houses", houseH.Create)
	api.GET("/houses/:id", houseH.Get)
	api.POST("/houses/:id/calculate_bills", billingH.CalculateBills)
	api.POST("/houses/:id/bills/compute", billingH.ComputeBills)
	api.GET("/houses/:id/progress", billingH.Progress)
	api.GET("/houses/:id/statement", stmtH.Download)
	api.GET("/apartments", aptH.List)
	api.POST("/apartments", aptH.Create)
	api.GET("/apartments/:id", aptH.Get)
	api.GET("/apartments/:id/bills", aptH.Bills)
	api.GET("/meters", meterH.List)
	api.POST("/meters", meterH.Create)
	api.GET("/meters/house/:house_id", meterH.ListByHouse)
	api.GET("/meters/:id", meterH.Get)
	api.POST("/meters/:id/readings", meterH.AddReading)
	api.GET("/meter-types", meterH.ListTypes)
	api.POST("/meter-types", meterH.CreateType)
	api.GET("/tariffs", tariffH.List)
	api.POST("/tariffs", tariffH.Create)
	api.GET("/tariffs/:id", tariffH.Get)
	api.GET("/billing/jobs/:job_id", billingH.PollJob)

	return &testAPI{
		t:         t,
		db:        db,
		engine:    engine,
		submitter: submitter,
		results:   results,
		executor:  executor,
	}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(v))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// envelope is the decoded dto.Response with raw data
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if into != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

func (a *testAPI) mustCreate(path string, body any) map[string]any {
	a.t.Helper()
	w := a.do(http.MethodPost, path, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out map[string]any
	decode(a.t, w, &out)
	return out
}

func idOf(v map[string]any) int64 {
	return int64(v["id"].(float64))
}

// seedBillableHouse builds a house with one 50 m2 apartment, a water meter
// with January and February readings, a water tariff and an area tariff
func (a *testAPI) seedBillableHouse() (houseID, apartmentID int64) {
	a.t.Helper()
	house := a.mustCreate("/api/v1/houses", map[string]any{"address": "12 Elm Street"})
	houseID = idOf(house)
	apt := a.mustCreate("/api/v1/apartments", map[string]any{"house_id": houseID, "number": 1, "area": "50"})
	apartmentID = idOf(apt)
	water := a.mustCreate("/api/v1/meter-types", map[string]any{"name": "Cold water", "unit": "m3"})
	a.mustCreate("/api/v1/meters", map[string]any{
		"apartment_id":  apartmentID,
		"meter_number":  "W-1",
		"meter_type_id": idOf(water),
		"readings":      map[string]any{"2024-01": "100", "2024-02": "130"},
	})
	a.mustCreate("/api/v1/tariffs", map[string]any{"meter_type_id": idOf(water), "price_per_unit": "2.5"})
	a.mustCreate("/api/v1/tariffs", map[string]any{"custom_name": "Maintenance", "unit": "m2", "price_per_unit": "1.2"})
	return houseID, apartmentID
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
