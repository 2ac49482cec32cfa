package billing

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fraction digits kept for costs and reported consumption
const MoneyPlaces = 2

// Round2 rounds to two decimal places, half away from zero (2.005 -> 2.01).
// Banker's rounding is never used.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
