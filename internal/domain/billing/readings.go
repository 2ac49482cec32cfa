package billing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/communal/backend/internal/domain/shared"
)

// Readings maps a period to the cumulative meter value recorded for it
type Readings map[Period]decimal.Decimal

// Get returns the reading for p
func (r Readings) Get(p Period) (decimal.Decimal, bool) {
	v, ok := r[p]
	return v, ok
}

// Has reports whether a reading exists for p
func (r Readings) Has(p Period) bool {
	_, ok := r[p]
	return ok
}

// ValueOr returns the reading for p or fallback when absent
func (r Readings) ValueOr(p Period, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := r[p]; ok {
		return v
	}
	return fallback
}

// Periods returns the recorded periods in ascending order
func (r Readings) Periods() []Period {
	out := make([]Period, 0, len(r))
	for p := range r {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Earliest returns the earliest recorded period
func (r Readings) Earliest() (Period, bool) {
	var earliest Period
	found := false
	for p := range r {
		if !found || p.Before(earliest) {
			earliest = p
			found = true
		}
	}
	return earliest, found
}

// Latest returns the latest recorded period
func (r Readings) Latest() (Period, bool) {
	var latest Period
	found := false
	for p := range r {
		if !found || p.After(latest) {
			latest = p
			found = true
		}
	}
	return latest, found
}

// Add appends a reading. Periods are append-only: an existing period cannot
// be overwritten, and no reading may precede the earliest recorded period.
func (r Readings) Add(p Period, value decimal.Decimal) error {
	if value.IsNegative() {
		return shared.InvalidInputf("reading for %s must not be negative", p)
	}
	if r.Has(p) {
		return shared.InvalidInputf("a reading for %s already exists", p)
	}
	if earliest, ok := r.Earliest(); ok && p.Before(earliest) {
		return shared.InvalidInputf("reading for %s is earlier than the first recorded period %s", p, earliest)
	}
	r[p] = value
	return nil
}

// Clone returns a copy of r
func (r Readings) Clone() Readings {
	out := make(Readings, len(r))
	for p, v := range r {
		out[p] = v
	}
	return out
}
