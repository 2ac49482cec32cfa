package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/communal/backend/internal/domain/billing"
)

// EncodeReadings stores readings as {"YYYY-MM": number}
func EncodeReadings(r billing.Readings) (datatypes.JSON, error) {
	raw := make(map[string]json.Number, len(r))
	for p, v := range r {
		raw[p.String()] = json.Number(v.String())
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode readings: %w", err)
	}
	return datatypes.JSON(data), nil
}

// DecodeReadings reads the format written by EncodeReadings. Numeric strings
// are accepted as values.
func DecodeReadings(data datatypes.JSON) (billing.Readings, error) {
	out := make(billing.Readings)
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	var raw map[string]decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	for key, v := range raw {
		p, err := billing.ParsePeriod(key)
		if err != nil {
			return nil, fmt.Errorf("decode readings: %w", err)
		}
		out[p] = v
	}
	return out, nil
}

// EncodeCharge stores the charge as an ordered list of line items
func EncodeCharge(c billing.Charge) (datatypes.JSON, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode charge: %w", err)
	}
	return datatypes.JSON(data), nil
}

// DecodeCharge reads the format written by EncodeCharge
func DecodeCharge(data datatypes.JSON) (billing.Charge, error) {
	out := billing.Charge{}
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode charge: %w", err)
	}
	return out, nil
}
