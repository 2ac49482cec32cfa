package main

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/communal/backend/internal/domain/billing"
)

// Fixture is the YAML document loaded by the seed command
type Fixture struct {
	MeterTypes []MeterTypeFixture `yaml:"meter_types"`
	Tariffs    []TariffFixture    `yaml:"tariffs"`
	Houses     []HouseFixture     `yaml:"houses"`
}

// MeterTypeFixture describes one meter type
type MeterTypeFixture struct {
	Name string `yaml:"name"`
	Unit string `yaml:"unit"`
}

// TariffFixture is a meter tariff when MeterType is set, otherwise an area
// tariff identified by Name
type TariffFixture struct {
	MeterType string `yaml:"meter_type"`
	Name      string `yaml:"name"`
	Unit      string `yaml:"unit"`
	Price     string `yaml:"price"`
}

// HouseFixture describes a house and its apartments
type HouseFixture struct {
	Address    string             `yaml:"address"`
	Apartments []ApartmentFixture `yaml:"apartments"`
}

// ApartmentFixture describes an apartment; Number may be omitted
type ApartmentFixture struct {
	Number *int           `yaml:"number"`
	Area   string         `yaml:"area"`
	Meters []MeterFixture `yaml:"meters"`
}

// MeterFixture describes a meter with readings keyed by "YYYY-MM"
type MeterFixture struct {
	Number   string            `yaml:"number"`
	Type     string            `yaml:"type"`
	Readings map[string]string `yaml:"readings"`
}

// DecodeFixture reads a fixture document. Unknown keys are rejected.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return &f, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", field, value)
	}
	return d, nil
}

// readings converts the fixture map into domain readings
func (m MeterFixture) readings() (billing.Readings, error) {
	out := make(billing.Readings, len(m.Readings))
	for key, raw := range m.Readings {
		p, err := billing.ParsePeriod(key)
		if err != nil {
			return nil, fmt.Errorf("meter %q: %w", m.Number, err)
		}
		v, err := parseDecimal(fmt.Sprintf("meter %q reading %s", m.Number, key), raw)
		if err != nil {
			return nil, err
		}
		out[p] = v
	}
	return out, nil
}
