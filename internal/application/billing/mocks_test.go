package billing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/scheduler"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockHouseRepository struct {
	mock.Mock
}

func (m *MockHouseRepository) FindByID(ctx context.Context, id int64) (*housing.House, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*housing.House), args.Error(1)
}

func (m *MockHouseRepository) FindByAddress(ctx context.Context, address string) (*housing.House, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*housing.House), args.Error(1)
}

func (m *MockHouseRepository) FindAll(ctx context.Context, filter shared.Filter) ([]housing.House, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]housing.House), args.Get(1).(int64), args.Error(2)
}

func (m *MockHouseRepository) FindAllIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockHouseRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockHouseRepository) Save(ctx context.Context, house *housing.House) error {
	args := m.Called(ctx, house)
	return args.Error(0)
}

type MockApartmentRepository struct {
	mock.Mock
}

func (m *MockApartmentRepository) FindByID(ctx context.Context, id int64) (*housing.Apartment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*housing.Apartment), args.Error(1)
}

func (m *MockApartmentRepository) FindByHouse(ctx context.Context, houseID int64) ([]housing.Apartment, error) {
	args := m.Called(ctx, houseID)
	return args.Get(0).([]housing.Apartment), args.Error(1)
}

func (m *MockApartmentRepository) Save(ctx context.Context, apartment *housing.Apartment) error {
	args := m.Called(ctx, apartment)
	return args.Error(0)
}

type MockMeterRepository struct {
	mock.Mock
}

func (m *MockMeterRepository) FindByID(ctx context.Context, id int64) (*housing.Meter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*housing.Meter), args.Error(1)
}

func (m *MockMeterRepository) FindByApartment(ctx context.Context, apartmentID int64) ([]housing.Meter, error) {
	args := m.Called(ctx, apartmentID)
	return args.Get(0).([]housing.Meter), args.Error(1)
}

func (m *MockMeterRepository) FindByHouse(ctx context.Context, houseID int64) ([]housing.Meter, error) {
	args := m.Called(ctx, houseID)
	return args.Get(0).([]housing.Meter), args.Error(1)
}

func (m *MockMeterRepository) Save(ctx context.Context, meter *housing.Meter) error {
	args := m.Called(ctx, meter)
	return args.Error(0)
}

func (m *MockMeterRepository) SaveReadings(ctx context.Context, meter *housing.Meter) error {
	args := m.Called(ctx, meter)
	return args.Error(0)
}

type MockTariffRepository struct {
	mock.Mock
}

func (m *MockTariffRepository) FindAll(ctx context.Context) ([]*billing.Tariff, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*billing.Tariff), args.Error(1)
}

func (m *MockTariffRepository) FindByID(ctx context.Context, id int64) (*billing.Tariff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Tariff), args.Error(1)
}

func (m *MockTariffRepository) ExistsForMeterType(ctx context.Context, meterTypeID int64) (bool, error) {
	args := m.Called(ctx, meterTypeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTariffRepository) ExistsForName(ctx context.Context, customName string) (bool, error) {
	args := m.Called(ctx, customName)
	return args.Bool(0), args.Error(1)
}

func (m *MockTariffRepository) Save(ctx context.Context, t *billing.Tariff) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

type MockUtilityBillRepository struct {
	mock.Mock
}

func (m *MockUtilityBillRepository) Upsert(ctx context.Context, bill *billing.UtilityBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockUtilityBillRepository) FindByApartment(ctx context.Context, apartmentID int64) ([]billing.UtilityBill, error) {
	args := m.Called(ctx, apartmentID)
	return args.Get(0).([]billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) FindByApartmentAndMonth(ctx context.Context, apartmentID int64, period billing.Period) (*billing.UtilityBill, error) {
	args := m.Called(ctx, apartmentID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) FindByHouseAndMonth(ctx context.Context, houseID int64, period billing.Period) ([]billing.UtilityBill, error) {
	args := m.Called(ctx, houseID, period)
	return args.Get(0).([]billing.UtilityBill), args.Error(1)
}

type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) Create(ctx context.Context, p *billing.CalculationProgress) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProgressRepository) Update(ctx context.Context, p *billing.CalculationProgress) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProgressRepository) FindByID(ctx context.Context, id int64) (*billing.CalculationProgress, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CalculationProgress), args.Error(1)
}

func (m *MockProgressRepository) FindByJobID(ctx context.Context, jobID string) (*billing.CalculationProgress, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CalculationProgress), args.Error(1)
}

func (m *MockProgressRepository) FindByHouse(ctx context.Context, houseID int64, limit int) ([]billing.CalculationProgress, error) {
	args := m.Called(ctx, houseID, limit)
	return args.Get(0).([]billing.CalculationProgress), args.Error(1)
}

func (m *MockProgressRepository) FindStale(ctx context.Context, before time.Time) ([]billing.CalculationProgress, error) {
	args := m.Called(ctx, before)
	return args.Get(0).([]billing.CalculationProgress), args.Error(1)
}

func (m *MockProgressRepository) Touch(ctx context.Context, jobID string, at time.Time) error {
	args := m.Called(ctx, jobID, at)
	return args.Error(0)
}

// =============================================================================
// Mock collaborators
// =============================================================================

type MockJobSubmitter struct {
	mock.Mock
}

func (m *MockJobSubmitter) SubmitJob(job *scheduler.Job) error {
	args := m.Called(job)
	return args.Error(0)
}

type MockBillComputer struct {
	mock.Mock
}

func (m *MockBillComputer) ComputeBills(ctx context.Context, houseID int64, year, month int) ([]billing.ApartmentBill, error) {
	args := m.Called(ctx, houseID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.ApartmentBill), args.Error(1)
}

type metricsRun struct {
	outcome      string
	apartments   int
	absentMeters int
}

type recordingMetrics struct {
	mu   sync.Mutex
	runs []metricsRun
}

func (m *recordingMetrics) RecordRun(_ context.Context, outcome string, _ time.Duration, apartments, absentMeters int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, metricsRun{outcome: outcome, apartments: apartments, absentMeters: absentMeters})
}

// =============================================================================
// Fixtures
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

var waterType = billing.MeterType{ID: 5, Name: "Cold water", Unit: "m³"}

func testHouse() *housing.House {
	return &housing.House{BaseEntity: shared.BaseEntity{ID: 1}, Address: "1 Main St"}
}

func testApartment(id int64, area string) housing.Apartment {
	return housing.Apartment{BaseEntity: shared.BaseEntity{ID: id}, HouseID: 1, Number: intPtr(int(id)), Area: dec(area)}
}

func testMeter(id, apartmentID int64, readings billing.Readings) housing.Meter {
	return housing.Meter{BaseEntity: shared.BaseEntity{ID: id}, ApartmentID: apartmentID, MeterNumber: "M-1", MeterType: waterType, Readings: readings}
}

func areaTariff(id int64, name, price string) *billing.Tariff {
	return &billing.Tariff{ID: id, CustomName: name, Unit: "m²", PricePerUnit: dec(price)}
}

func meterTariff(id int64, mt billing.MeterType, price string) *billing.Tariff {
	return &billing.Tariff{ID: id, MeterTypeID: int64Ptr(mt.ID), MeterType: &mt, PricePerUnit: dec(price)}
}
