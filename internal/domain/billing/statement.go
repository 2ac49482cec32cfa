package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementApartment is one apartment's stored bill on a house statement
type StatementApartment struct {
	ApartmentID int64
	Number      *int
	Area        decimal.Decimal
	Charge      Charge
}

// Total returns the apartment total
func (a StatementApartment) Total() decimal.Decimal {
	return a.Charge.Total()
}

// Statement gathers the stored bills of a house for one period
type Statement struct {
	HouseID     int64
	Address     string
	Period      Period
	Apartments  []StatementApartment
	GeneratedAt time.Time
}

// Total returns the sum over all apartments
func (s *Statement) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Apartments {
		total = total.Add(a.Total())
	}
	return total
}

// Lines returns the number of line items on the statement
func (s *Statement) Lines() int {
	n := 0
	for _, a := range s.Apartments {
		n += len(a.Charge)
	}
	return n
}
