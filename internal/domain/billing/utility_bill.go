package billing

import (
	"encoding/json"
	"time"
)

// BillDateLayout is the wire format of a bill month
const BillDateLayout = "2006-01-02"

// UtilityBill is the last computed bill of an apartment for one calendar month.
// At most one exists per (apartment, month).
type UtilityBill struct {
	ID          int64
	ApartmentID int64
	Month       time.Time
	Charge      Charge
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUtilityBill creates a bill for the first day of period
func NewUtilityBill(apartmentID int64, period Period, charge Charge) *UtilityBill {
	now := time.Now()
	if charge == nil {
		charge = Charge{}
	}
	return &UtilityBill{
		ApartmentID: apartmentID,
		Month:       period.FirstDay(),
		Charge:      charge,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Period returns the bill's billing period
func (b *UtilityBill) Period() Period {
	return PeriodOf(b.Month)
}

// Total returns the bill total
func (b *UtilityBill) Total() string {
	return b.Charge.Total().StringFixed(MoneyPlaces)
}

// ApartmentBill is the result of pricing one apartment. It is returned to
// callers and stored as the job payload; AbsentMeters is not persisted on the bill.
type ApartmentBill struct {
	ApartmentID     int64         `json:"apartment_id"`
	ApartmentNumber *int          `json:"apartment_number"`
	HouseID         int64         `json:"house_id"`
	Address         string        `json:"address"`
	Date            time.Time     `json:"date"`
	CalcRent        Charge        `json:"calc_rent"`
	AbsentMeters    []AbsentMeter `json:"absent_meters"`
}

type apartmentBillJSON struct {
	ApartmentID     int64         `json:"apartment_id"`
	ApartmentNumber *int          `json:"apartment_number"`
	HouseID         int64         `json:"house_id"`
	Address         string        `json:"address"`
	Date            string        `json:"date"`
	CalcRent        Charge        `json:"calc_rent"`
	AbsentMeters    []AbsentMeter `json:"absent_meters"`
}

// MarshalJSON writes the date as YYYY-MM-DD and empty lists as []
func (b ApartmentBill) MarshalJSON() ([]byte, error) {
	absent := b.AbsentMeters
	if absent == nil {
		absent = []AbsentMeter{}
	}
	return json.Marshal(apartmentBillJSON{
		ApartmentID:     b.ApartmentID,
		ApartmentNumber: b.ApartmentNumber,
		HouseID:         b.HouseID,
		Address:         b.Address,
		Date:            b.Date.Format(BillDateLayout),
		CalcRent:        b.CalcRent,
		AbsentMeters:    absent,
	})
}

// UnmarshalJSON reads the format written by MarshalJSON
func (b *ApartmentBill) UnmarshalJSON(data []byte) error {
	var raw apartmentBillJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(BillDateLayout, raw.Date)
	if err != nil {
		return err
	}
	*b = ApartmentBill{
		ApartmentID:     raw.ApartmentID,
		ApartmentNumber: raw.ApartmentNumber,
		HouseID:         raw.HouseID,
		Address:         raw.Address,
		Date:            date,
		CalcRent:        raw.CalcRent,
		AbsentMeters:    raw.AbsentMeters,
	}
	return nil
}

// Bill returns the UtilityBill to persist for this result
func (b ApartmentBill) Bill() *UtilityBill {
	return NewUtilityBill(b.ApartmentID, PeriodOf(b.Date), b.CalcRent)
}
