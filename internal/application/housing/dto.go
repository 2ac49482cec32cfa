package housing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
)

// ============================================================================
// House DTOs
// ============================================================================

// CreateHouseRequest represents a request to register a house
type CreateHouseRequest struct {
	Address string `json:"address" binding:"required,min=1,max=255"`
}

// HouseResponse represents a house in API responses
type HouseResponse struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HouseDetailResponse is a house with its apartments and their meters
type HouseDetailResponse struct {
	HouseResponse
	Apartments []ApartmentResponse `json:"apartments"`
}

// HouseListFilter represents filter options for the house list
type HouseListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToHouseResponse converts a domain House to HouseResponse
func ToHouseResponse(h *housing.House) HouseResponse {
	return HouseResponse{
		ID:        h.ID,
		Address:   h.Address,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}

// ToHouseResponses converts a slice of domain Houses
func ToHouseResponses(houses []housing.House) []HouseResponse {
	out := make([]HouseResponse, len(houses))
	for i := range houses {
		out[i] = ToHouseResponse(&houses[i])
	}
	return out
}

// ============================================================================
// Apartment DTOs
// ============================================================================

// CreateApartmentRequest represents a request to add an apartment to a house
type CreateApartmentRequest struct {
	HouseID int64           `json:"house_id" binding:"required,min=1"`
	Number  *int            `json:"number" binding:"omitempty,min=0"`
	Area    decimal.Decimal `json:"area"`
}

// ApartmentResponse represents an apartment in API responses
type ApartmentResponse struct {
	ID        int64           `json:"id"`
	HouseID   int64           `json:"house_id"`
	Number    *int            `json:"number"`
	Area      decimal.Decimal `json:"area"`
	Meters    []MeterResponse `json:"meters,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToApartmentResponse converts a domain Apartment to ApartmentResponse
func ToApartmentResponse(a *housing.Apartment) ApartmentResponse {
	resp := ApartmentResponse{
		ID:        a.ID,
		HouseID:   a.HouseID,
		Number:    a.Number,
		Area:      a.Area,
		CreatedAt: a.CreatedAt,
	}
	if len(a.Meters) > 0 {
		resp.Meters = ToMeterResponses(a.Meters)
	}
	return resp
}

// ToApartmentResponses converts a slice of domain Apartments
func ToApartmentResponses(apartments []housing.Apartment) []ApartmentResponse {
	out := make([]ApartmentResponse, len(apartments))
	for i := range apartments {
		out[i] = ToApartmentResponse(&apartments[i])
	}
	return out
}

// ============================================================================
// Meter DTOs
// ============================================================================

// CreateMeterRequest represents a request to install a meter. Readings are
// keyed by "YYYY-MM".
type CreateMeterRequest struct {
	ApartmentID int64            `json:"apartment_id" binding:"required,min=1"`
	MeterNumber string           `json:"meter_number" binding:"max=50"`
	MeterTypeID int64            `json:"meter_type_id" binding:"required,min=1"`
	Readings    billing.Readings `json:"readings"`
}

// AddReadingRequest appends one reading to a meter
type AddReadingRequest struct {
	Period billing.Period  `json:"period"`
	Value  decimal.Decimal `json:"value"`
}

// MeterResponse represents a meter in API responses
type MeterResponse struct {
	ID          int64             `json:"id"`
	ApartmentID int64             `json:"apartment_id"`
	MeterNumber string            `json:"meter_number"`
	MeterType   MeterTypeResponse `json:"meter_type"`
	Readings    billing.Readings  `json:"readings"`
}

// ToMeterResponse converts a domain Meter to MeterResponse
func ToMeterResponse(m *housing.Meter) MeterResponse {
	readings := m.Readings
	if readings == nil {
		readings = billing.Readings{}
	}
	return MeterResponse{
		ID:          m.ID,
		ApartmentID: m.ApartmentID,
		MeterNumber: m.MeterNumber,
		MeterType:   ToMeterTypeResponse(&m.MeterType),
		Readings:    readings,
	}
}

// ToMeterResponses converts a slice of domain Meters
func ToMeterResponses(meters []housing.Meter) []MeterResponse {
	out := make([]MeterResponse, len(meters))
	for i := range meters {
		out[i] = ToMeterResponse(&meters[i])
	}
	return out
}

// ============================================================================
// Meter type and tariff DTOs
// ============================================================================

// CreateMeterTypeRequest represents a request to add a meter type
type CreateMeterTypeRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
	Unit string `json:"unit" binding:"required,min=1,max=20"`
}

// MeterTypeResponse represents a meter type in API responses
type MeterTypeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// ToMeterTypeResponse converts a domain MeterType
func ToMeterTypeResponse(mt *billing.MeterType) MeterTypeResponse {
	return MeterTypeResponse{ID: mt.ID, Name: mt.Name, Unit: mt.Unit}
}

// CreateTariffRequest creates either a meter tariff (meter_type_id) or an
// area tariff (custom_name and unit)
type CreateTariffRequest struct {
	MeterTypeID  *int64          `json:"meter_type_id" binding:"omitempty,min=1"`
	CustomName   string          `json:"custom_name" binding:"max=100"`
	Unit         string          `json:"unit" binding:"max=20"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// TariffResponse represents a tariff in API responses
type TariffResponse struct {
	ID           int64           `json:"id"`
	Kind         string          `json:"kind"`
	MeterTypeID  *int64          `json:"meter_type_id"`
	CustomName   string          `json:"custom_name,omitempty"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToTariffResponse converts a domain Tariff
func ToTariffResponse(t *billing.Tariff) TariffResponse {
	return TariffResponse{
		ID:           t.ID,
		Kind:         string(t.Kind()),
		MeterTypeID:  t.MeterTypeID,
		CustomName:   t.CustomName,
		Name:         t.DisplayName(),
		Unit:         t.DisplayUnit(),
		PricePerUnit: t.PricePerUnit,
		CreatedAt:    t.CreatedAt,
	}
}

// ============================================================================
// Bill DTOs
// ============================================================================

// BillResponse is a stored bill
type BillResponse struct {
	ID          int64           `json:"id"`
	ApartmentID int64           `json:"apartment_id"`
	Month       string          `json:"month"`
	Charge      billing.Charge  `json:"charge"`
	Total       decimal.Decimal `json:"total"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToBillResponse converts a domain UtilityBill
func ToBillResponse(b *billing.UtilityBill) BillResponse {
	return BillResponse{
		ID:          b.ID,
		ApartmentID: b.ApartmentID,
		Month:       b.Month.Format(billing.BillDateLayout),
		Charge:      b.Charge,
		Total:       b.Charge.Total(),
		UpdatedAt:   b.UpdatedAt,
	}
}
