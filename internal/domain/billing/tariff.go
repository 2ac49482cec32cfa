package billing

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/communal/backend/internal/domain/shared"
)

// TariffKind distinguishes consumption-priced tariffs from area-priced ones
type TariffKind string

const (
	TariffKindMeter TariffKind = "meter"
	TariffKindArea  TariffKind = "area"
)

// DefaultAreaUnit is reported for area tariffs stored without a unit
const DefaultAreaUnit = "m²"

// Tariff is a price-per-unit rule. A meter tariff is linked to a MeterType and
// priced per unit of consumption; an area tariff has a custom name and unit and
// is priced per square metre of apartment area.
type Tariff struct {
	ID           int64
	MeterTypeID  *int64
	MeterType    *MeterType
	CustomName   string
	Unit         string
	PricePerUnit decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewMeterTariff creates a consumption tariff for a meter type
func NewMeterTariff(meterType *MeterType, price decimal.Decimal) (*Tariff, error) {
	if meterType == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter tariff requires a meter type")
	}
	id := meterType.ID
	t := &Tariff{
		MeterTypeID:  &id,
		MeterType:    meterType,
		PricePerUnit: price,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

// NewAreaTariff creates an area-based tariff
func NewAreaTariff(customName, unit string, price decimal.Decimal) (*Tariff, error) {
	t := &Tariff{
		CustomName:   strings.TrimSpace(customName),
		Unit:         strings.TrimSpace(unit),
		PricePerUnit: price,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

// Validate enforces the tariff combination rules: exactly one of meter type
// and custom name, no manual unit on meter tariffs, a unit on area tariffs,
// and a non-negative price with at most two fraction digits.
func (t *Tariff) Validate() error {
	linked := t.MeterTypeID != nil
	named := t.CustomName != ""

	switch {
	case linked && named:
		return shared.NewDomainError(shared.CodeInvalidInput, "Tariff cannot have both a meter type and a custom name")
	case !linked && !named:
		return shared.NewDomainError(shared.CodeInvalidInput, "Tariff must have either a meter type or a custom name")
	case linked && t.Unit != "":
		return shared.NewDomainError(shared.CodeInvalidInput, "Meter tariff inherits its unit from the meter type and cannot set one")
	case named && t.Unit == "":
		return shared.NewDomainError(shared.CodeInvalidInput, "Custom tariff must specify a unit")
	}

	if named && utf8.RuneCountInString(t.CustomName) > 100 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Tariff name cannot exceed 100 characters")
	}
	if t.PricePerUnit.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Tariff price cannot be negative")
	}
	if !t.PricePerUnit.Equal(t.PricePerUnit.Round(MoneyPlaces)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Tariff price cannot have more than 2 decimal places")
	}
	return nil
}

// Kind returns the tariff kind
func (t *Tariff) Kind() TariffKind {
	if t.MeterTypeID != nil {
		return TariffKindMeter
	}
	return TariffKindArea
}

// IsAreaBased reports whether the tariff is priced per apartment area
func (t *Tariff) IsAreaBased() bool {
	return t.Kind() == TariffKindArea
}

// DisplayName returns the custom name, or the meter type name for meter tariffs
func (t *Tariff) DisplayName() string {
	if t.CustomName != "" {
		return t.CustomName
	}
	if t.MeterType != nil {
		return t.MeterType.Name
	}
	return ""
}

// DisplayUnit returns the unit shown on a bill line
func (t *Tariff) DisplayUnit() string {
	if t.IsAreaBased() {
		if t.Unit == "" {
			return DefaultAreaUnit
		}
		return t.Unit
	}
	if t.MeterType != nil {
		return t.MeterType.Unit
	}
	return ""
}

// UpdatePrice changes the price per unit
func (t *Tariff) UpdatePrice(price decimal.Decimal) error {
	old := t.PricePerUnit
	t.PricePerUnit = price
	if err := t.Validate(); err != nil {
		t.PricePerUnit = old
		return err
	}
	t.UpdatedAt = time.Now()
	return nil
}

// TariffIndex partitions tariffs for a single billing run
type TariffIndex struct {
	Area    []*Tariff
	ByMeter map[int64]*Tariff
}

// IndexTariffs builds a request-scoped tariff index. When several tariffs
// share a meter type the last one in input order is kept.
func IndexTariffs(tariffs []*Tariff) TariffIndex {
	idx := TariffIndex{
		Area:    make([]*Tariff, 0),
		ByMeter: make(map[int64]*Tariff),
	}
	for _, t := range tariffs {
		if t == nil {
			continue
		}
		if t.MeterTypeID != nil {
			idx.ByMeter[*t.MeterTypeID] = t
			continue
		}
		idx.Area = append(idx.Area, t)
	}
	return idx
}

// ForMeterType returns the tariff for a meter type
func (idx TariffIndex) ForMeterType(meterTypeID int64) (*Tariff, bool) {
	t, ok := idx.ByMeter[meterTypeID]
	return t, ok
}
