package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/communal/backend/internal/domain/billing"
)

// TariffModel is the persistence model for tariffs. A meter type has at most
// one tariff and area tariff names are unique.
type TariffModel struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	MeterTypeID  *int64          `gorm:"uniqueIndex:idx_tariffs_meter_type_id,where:meter_type_id IS NOT NULL"`
	MeterType    *MeterTypeModel `gorm:"foreignKey:MeterTypeID;constraint:OnDelete:CASCADE"`
	CustomName   *string         `gorm:"type:varchar(100);uniqueIndex:idx_tariffs_custom_name,where:custom_name IS NOT NULL"`
	Unit         *string         `gorm:"type:varchar(20)"`
	PricePerUnit decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TariffModel) TableName() string {
	return "tariffs"
}

// ToDomain converts the persistence model to a domain Tariff
func (m *TariffModel) ToDomain() *billing.Tariff {
	t := &billing.Tariff{
		ID:           m.ID,
		MeterTypeID:  m.MeterTypeID,
		CustomName:   derefString(m.CustomName),
		Unit:         derefString(m.Unit),
		PricePerUnit: m.PricePerUnit,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.MeterType != nil {
		t.MeterType = m.MeterType.ToDomain()
	}
	return t
}

// TariffModelFromDomain creates a new persistence model from domain Tariff
func TariffModelFromDomain(t *billing.Tariff) *TariffModel {
	return &TariffModel{
		ID:           t.ID,
		MeterTypeID:  t.MeterTypeID,
		CustomName:   optionalString(t.CustomName),
		Unit:         optionalString(t.Unit),
		PricePerUnit: t.PricePerUnit,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// UtilityBillModel is the persistence model for utility bills. The pair
// (apartment_id, month) is unique.
type UtilityBillModel struct {
	BaseModel
	ApartmentID int64          `gorm:"not null;uniqueIndex:idx_utility_bills_apartment_month"`
	Month       time.Time      `gorm:"type:date;not null;uniqueIndex:idx_utility_bills_apartment_month"`
	Charge      datatypes.JSON `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UtilityBillModel) TableName() string {
	return "utility_bills"
}

// ToDomain converts the persistence model to a domain UtilityBill
func (m *UtilityBillModel) ToDomain() (*billing.UtilityBill, error) {
	charge, err := DecodeCharge(m.Charge)
	if err != nil {
		return nil, err
	}
	return &billing.UtilityBill{
		ID:          m.ID,
		ApartmentID: m.ApartmentID,
		Month:       billing.PeriodOf(m.Month).FirstDay(),
		Charge:      charge,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

// UtilityBillModelFromDomain creates a new persistence model from domain UtilityBill
func UtilityBillModelFromDomain(b *billing.UtilityBill) (*UtilityBillModel, error) {
	charge, err := EncodeCharge(b.Charge)
	if err != nil {
		return nil, err
	}
	return &UtilityBillModel{
		BaseModel: BaseModel{
			ID:        b.ID,
			CreatedAt: b.CreatedAt,
			UpdatedAt: b.UpdatedAt,
		},
		ApartmentID: b.ApartmentID,
		Month:       billing.PeriodOf(b.Month).FirstDay(),
		Charge:      charge,
	}, nil
}

// CalculationProgressModel is the persistence model for billing job progress
type CalculationProgressModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	JobID        string  `gorm:"type:varchar(36);not null;uniqueIndex"`
	HouseID      int64   `gorm:"not null;index"`
	Year         int     `gorm:"not null"`
	Month        int     `gorm:"not null"`
	Status       string  `gorm:"type:varchar(20);not null;default:'queued';index:idx_calculation_progress_status_updated"`
	ErrorMessage *string `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null;index:idx_calculation_progress_status_updated"`
}

// TableName returns the table name for GORM
func (CalculationProgressModel) TableName() string {
	return "calculation_progress"
}

// ToDomain converts the persistence model to a domain CalculationProgress
func (m *CalculationProgressModel) ToDomain() *billing.CalculationProgress {
	return &billing.CalculationProgress{
		ID:           m.ID,
		JobID:        m.JobID,
		HouseID:      m.HouseID,
		Year:         m.Year,
		Month:        m.Month,
		Status:       billing.ProgressStatus(m.Status),
		ErrorMessage: derefString(m.ErrorMessage),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// CalculationProgressModelFromDomain creates a new persistence model from domain CalculationProgress
func CalculationProgressModelFromDomain(p *billing.CalculationProgress) *CalculationProgressModel {
	return &CalculationProgressModel{
		ID:           p.ID,
		CreatedAt:    p.CreatedAt,
		JobID:        p.JobID,
		HouseID:      p.HouseID,
		Year:         p.Year,
		Month:        p.Month,
		Status:       string(p.Status),
		ErrorMessage: optionalString(p.ErrorMessage),
		UpdatedAt:    p.UpdatedAt,
	}
}

// All returns every model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&HouseModel{},
		&ApartmentModel{},
		&MeterTypeModel{},
		&MeterModel{},
		&TariffModel{},
		&UtilityBillModel{},
		&CalculationProgressModel{},
	}
}
