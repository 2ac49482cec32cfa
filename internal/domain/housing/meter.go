package housing

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/shared"
)

// Meter belongs to an apartment and records cumulative readings per period
type Meter struct {
	shared.BaseEntity
	ApartmentID int64
	MeterNumber string
	MeterType   billing.MeterType
	Readings    billing.Readings
	// Version is incremented by every readings write
	Version     int
}

// NewMeter creates a new meter with optional initial readings
func NewMeter(apartmentID int64, meterNumber string, meterType billing.MeterType, initial billing.Readings) (*Meter, error) {
	meterNumber = strings.TrimSpace(meterNumber)
	if apartmentID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter must belong to an apartment")
	}
	if meterType.ID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter must have a meter type")
	}
	if utf8.RuneCountInString(meterNumber) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter number cannot exceed 50 characters")
	}

	m := &Meter{
		BaseEntity:  shared.NewBaseEntity(),
		ApartmentID: apartmentID,
		MeterNumber: meterNumber,
		MeterType:   meterType,
		Readings:    make(billing.Readings, len(initial)),
		Version:     1,
	}
	for _, p := range initial.Periods() {
		if err := m.Readings.Add(p, initial[p]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddReading appends a reading for period
func (m *Meter) AddReading(period billing.Period, value decimal.Decimal) error {
	if m.Readings == nil {
		m.Readings = make(billing.Readings)
	}
	if err := m.Readings.Add(period, value); err != nil {
		return err
	}
	m.UpdatedAt = time.Now()
	return nil
}

// PricingInput returns the view of the meter consumed by billing.Pricer
func (m *Meter) PricingInput() billing.MeterInput {
	return billing.MeterInput{
		ID:          m.ID,
		MeterNumber: m.MeterNumber,
		MeterType:   m.MeterType,
		Readings:    m.Readings,
	}
}
