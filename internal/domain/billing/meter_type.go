package billing

import (
	"strings"
	"unicode/utf8"

	"github.com/communal/backend/internal/domain/shared"
)

// MeterType is reference data describing what a meter measures, e.g. cold water in m³
type MeterType struct {
	ID   int64
	Name string
	Unit string
}

// NewMeterType creates a new meter type
func NewMeterType(name, unit string) (*MeterType, error) {
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter type name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 100 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter type name cannot exceed 100 characters")
	}
	if unit == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter type unit cannot be empty")
	}
	if utf8.RuneCountInString(unit) > 20 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Meter type unit cannot exceed 20 characters")
	}
	return &MeterType{Name: name, Unit: unit}, nil
}
