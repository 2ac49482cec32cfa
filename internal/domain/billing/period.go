package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/communal/backend/internal/domain/shared"
)

// Period is a billing month. Its canonical key is "YYYY-MM".
type Period struct {
	Year  int
	Month int
}

// NewPeriod validates and builds a Period
func NewPeriod(year, month int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, shared.InvalidInputf("year must be between 1 and 9999, got %d", year)
	}
	if month < 1 || month > 12 {
		return Period{}, shared.InvalidInputf("month must be between 1 and 12, got %d", month)
	}
	return Period{Year: year, Month: month}, nil
}

// MustPeriod builds a Period and panics on invalid input. Intended for tests and constants.
func MustPeriod(year, month int) Period {
	p, err := NewPeriod(year, month)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePeriod parses a "YYYY-MM" key
func ParsePeriod(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || len(y) != 4 || len(m) != 2 {
		return Period{}, shared.InvalidInputf("period %q must have the form YYYY-MM", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, shared.InvalidInputf("period %q has a non-numeric year", s)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, shared.InvalidInputf("period %q has a non-numeric month", s)
	}
	return NewPeriod(year, month)
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// String returns the canonical "YYYY-MM" key
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// IsZero reports whether p is the zero value
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Previous returns the period immediately before p
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the period immediately after p
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// StepBack applies Previous n times
func (p Period) StepBack(n int) Period {
	for i := 0; i < n; i++ {
		p = p.Previous()
	}
	return p
}

// Compare returns -1, 0 or +1. The order matches the lexicographic order of
// the canonical keys.
func (p Period) Compare(other Period) int {
	switch {
	case p.Year < other.Year:
		return -1
	case p.Year > other.Year:
		return 1
	case p.Month < other.Month:
		return -1
	case p.Month > other.Month:
		return 1
	}
	return 0
}

// Before reports whether p is strictly earlier than other
func (p Period) Before(other Period) bool {
	return p.Compare(other) < 0
}

// After reports whether p is strictly later than other
func (p Period) After(other Period) bool {
	return p.Compare(other) > 0
}

// FirstDay returns midnight UTC on the first day of the period
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// MarshalText implements encoding.TextMarshaler
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
