package billing

import "github.com/shopspring/decimal"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func meterType(id int64, name, unit string) *MeterType {
	return &MeterType{ID: id, Name: name, Unit: unit}
}
