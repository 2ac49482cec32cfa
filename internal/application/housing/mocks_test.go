package housing

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
)

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

type MockMeterTypeRepository struct {
	mock.Mock
}

func (m *MockMeterTypeRepository) FindAll(ctx context.Context) ([]billing.MeterType, error) {
	args := m.Called(ctx)
	return args.Get(0).([]billing.MeterType), args.Error(1)
}

func (m *MockMeterTypeRepository) FindByID(ctx context.Context, id int64) (*billing.MeterType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.MeterType), args.Error(1)
}

func (m *MockMeterTypeRepository) FindByName(ctx context.Context, name string) (*billing.MeterType, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.MeterType), args.Error(1)
}

func (m *MockMeterTypeRepository) Save(ctx context.Context, mt *billing.MeterType) error {
	args := m.Called(ctx, mt)
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

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}
