package billing

import "github.com/shopspring/decimal"

// DefaultLookback is the number of prior periods averaged when the current reading is missing
const DefaultLookback = 3

// EstimateAverage estimates consumption for period from the lookback periods
// strictly before it. Every period in the window that has a reading
// contributes reading(p) - reading(p.Previous()), a missing prior reading
// counting as zero. The result is the mean of those deltas, or zero when the
// window holds no readings.
func EstimateAverage(readings Readings, period Period, lookback int) decimal.Decimal {
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	sum := decimal.Zero
	count := 0
	p := period
	for i := 0; i < lookback; i++ {
		p = p.Previous()
		current, ok := readings.Get(p)
		if !ok {
			continue
		}
		prior := readings.ValueOr(p.Previous(), decimal.Zero)
		sum = sum.Add(current.Sub(prior))
		count++
	}

	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count)))
}
