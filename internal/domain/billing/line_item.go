package billing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LineItem is one tariff's contribution to an apartment bill
type LineItem struct {
	TariffID    int64           `json:"id"`
	Name        string          `json:"name"`
	Consumption decimal.Decimal `json:"consumption"`
	Unit        string          `json:"unit"`
	Cost        decimal.Decimal `json:"cost"`
}

type lineItemJSON struct {
	TariffID    int64       `json:"id"`
	Name        string      `json:"name"`
	Consumption json.Number `json:"consumption"`
	Unit        string      `json:"unit"`
	Cost        json.Number `json:"cost"`
}

// MarshalJSON writes consumption and cost as JSON numbers
func (l LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineItemJSON{
		TariffID:    l.TariffID,
		Name:        l.Name,
		Consumption: json.Number(l.Consumption.StringFixed(MoneyPlaces)),
		Unit:        l.Unit,
		Cost:        json.Number(l.Cost.StringFixed(MoneyPlaces)),
	})
}

// Charge is the ordered list of line items stored on a UtilityBill
type Charge []LineItem

// Total sums the line costs
func (c Charge) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c {
		total = total.Add(l.Cost)
	}
	return total
}

// MarshalJSON writes an empty charge as [] rather than null
func (c Charge) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]LineItem(c))
}

// AbsentMeter is a meter skipped because it has no reading for either the
// current or the previous period
type AbsentMeter struct {
	TariffID int64  `json:"id,omitempty"`
	Name     string `json:"name"`
}
