package housing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/shared"
)

// maxArea is the largest value the numeric(7,2) area column can hold
var maxArea = decimal.RequireFromString("99999.99")

// Apartment belongs to exactly one house
type Apartment struct {
	shared.BaseEntity
	HouseID int64
	Number  *int
	Area    decimal.Decimal
	Meters  []Meter
}

// NewApartment creates a new apartment
func NewApartment(houseID int64, number *int, area decimal.Decimal) (*Apartment, error) {
	if houseID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Apartment must belong to a house")
	}
	if err := validateNumber(number); err != nil {
		return nil, err
	}
	if err := ValidateArea(area); err != nil {
		return nil, err
	}
	return &Apartment{
		BaseEntity: shared.NewBaseEntity(),
		HouseID:    houseID,
		Number:     number,
		Area:       area,
	}, nil
}

// ValidateArea checks that area is positive and fits two fraction digits
func ValidateArea(area decimal.Decimal) error {
	if !area.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Apartment area must be greater than 0")
	}
	if !area.Equal(area.Round(2)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Apartment area cannot have more than 2 decimal places")
	}
	if area.GreaterThan(maxArea) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Apartment area is too large")
	}
	return nil
}

func validateNumber(number *int) error {
	if number != nil && *number < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Apartment number cannot be negative")
	}
	return nil
}

// Update changes number and area
func (a *Apartment) Update(number *int, area decimal.Decimal) error {
	if err := validateNumber(number); err != nil {
		return err
	}
	if err := ValidateArea(area); err != nil {
		return err
	}
	a.Number = number
	a.Area = area
	a.UpdatedAt = time.Now()
	return nil
}

// PricingInput returns the view of the apartment consumed by billing.Pricer
func (a *Apartment) PricingInput(meters []Meter) billing.ApartmentInput {
	in := billing.ApartmentInput{
		ID:     a.ID,
		Number: a.Number,
		Area:   a.Area,
		Meters: make([]billing.MeterInput, 0, len(meters)),
	}
	for i := range meters {
		in.Meters = append(in.Meters, meters[i].PricingInput())
	}
	return in
}
