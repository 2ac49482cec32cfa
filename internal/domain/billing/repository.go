package billing

import (
	"context"
	"time"
)

// MeterTypeRepository persists meter types
type MeterTypeRepository interface {
	FindAll(ctx context.Context) ([]MeterType, error)
	FindByID(ctx context.Context, id int64) (*MeterType, error)
	FindByName(ctx context.Context, name string) (*MeterType, error)
	Save(ctx context.Context, mt *MeterType) error
}

// TariffRepository persists tariffs. FindAll returns tariffs in ascending id order.
type TariffRepository interface {
	FindAll(ctx context.Context) ([]*Tariff, error)
	FindByID(ctx context.Context, id int64) (*Tariff, error)
	ExistsForMeterType(ctx context.Context, meterTypeID int64) (bool, error)
	ExistsForName(ctx context.Context, customName string) (bool, error)
	Save(ctx context.Context, t *Tariff) error
}

// UtilityBillRepository persists bills, one per (apartment, month)
type UtilityBillRepository interface {
	// Upsert inserts the bill or replaces the charge of the existing bill for the same apartment and month
	Upsert(ctx context.Context, bill *UtilityBill) error
	FindByApartment(ctx context.Context, apartmentID int64) ([]UtilityBill, error)
	FindByApartmentAndMonth(ctx context.Context, apartmentID int64, period Period) (*UtilityBill, error)
	FindByHouseAndMonth(ctx context.Context, houseID int64, period Period) ([]UtilityBill, error)
}

// ProgressRepository persists calculation progress records
type ProgressRepository interface {
	Create(ctx context.Context, p *CalculationProgress) error
	Update(ctx context.Context, p *CalculationProgress) error
	FindByID(ctx context.Context, id int64) (*CalculationProgress, error)
	FindByJobID(ctx context.Context, jobID string) (*CalculationProgress, error)
	FindByHouse(ctx context.Context, houseID int64, limit int) ([]CalculationProgress, error)
	// FindStale returns unfinished records whose heartbeat is older than before
	FindStale(ctx context.Context, before time.Time) ([]CalculationProgress, error)
	// Touch refreshes the heartbeat of an unfinished record
	Touch(ctx context.Context, jobID string, at time.Time) error
}
