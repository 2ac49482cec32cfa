package billing

import "github.com/shopspring/decimal"

// HouseRef carries the house fields copied onto every apartment result
type HouseRef struct {
	ID      int64
	Address string
}

// MeterInput is the pricing view of a meter
type MeterInput struct {
	ID          int64
	MeterNumber string
	MeterType   MeterType
	Readings    Readings
}

// ApartmentInput is the pricing view of an apartment and its meters
type ApartmentInput struct {
	ID     int64
	Number *int
	Area   decimal.Decimal
	Meters []MeterInput
}

// Pricer turns readings and tariffs into bill lines
type Pricer struct {
	Lookback int
}

// NewPricer creates a pricer. A non-positive lookback falls back to DefaultLookback.
func NewPricer(lookback int) Pricer {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return Pricer{Lookback: lookback}
}

// PriceApartment prices one apartment for period. Area tariffs come first in
// index order, then meter lines in meter order. Meters without a tariff are
// skipped; meters with no reading for the current nor the previous period
// are reported as absent instead of priced.
func (p Pricer) PriceApartment(house HouseRef, apt ApartmentInput, period Period, idx TariffIndex) ApartmentBill {
	previous := period.Previous()
	calcRent := make(Charge, 0, len(idx.Area)+len(apt.Meters))
	absent := make([]AbsentMeter, 0)

	for _, t := range idx.Area {
		calcRent = append(calcRent, LineItem{
			TariffID:    t.ID,
			Name:        t.DisplayName(),
			Consumption: Round2(apt.Area),
			Unit:        t.DisplayUnit(),
			Cost:        Round2(t.PricePerUnit.Mul(apt.Area)),
		})
	}

	for _, m := range apt.Meters {
		t, ok := idx.ForMeterType(m.MeterType.ID)
		if !ok {
			continue
		}

		current, hasCurrent := m.Readings.Get(period)
		if !hasCurrent && !m.Readings.Has(previous) {
			absent = append(absent, AbsentMeter{TariffID: t.ID, Name: m.MeterType.Name})
			continue
		}

		var consumption decimal.Decimal
		if hasCurrent {
			consumption = current.Sub(m.Readings.ValueOr(previous, decimal.Zero))
		} else {
			consumption = EstimateAverage(m.Readings, period, p.Lookback)
		}

		calcRent = append(calcRent, LineItem{
			TariffID:    t.ID,
			Name:        m.MeterType.Name,
			Consumption: Round2(consumption),
			Unit:        m.MeterType.Unit,
			Cost:        Round2(consumption.Mul(t.PricePerUnit)),
		})
	}

	return ApartmentBill{
		ApartmentID:     apt.ID,
		ApartmentNumber: apt.Number,
		HouseID:         house.ID,
		Address:         house.Address,
		Date:            period.FirstDay(),
		CalcRent:        calcRent,
		AbsentMeters:    absent,
	}
}
