package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
)

// Stats counts what a seed run created
type Stats struct {
	MeterTypes int
	Tariffs    int
	Houses     int
	Apartments int
	Meters     int
	Readings   int
}

// Seeder writes a Fixture through the domain repositories. Existing rows
// are matched by address, name or number and left alone, so running it
// twice is a no-op.
type Seeder struct {
	houses     housing.HouseRepository
	apartments housing.ApartmentRepository
	meters     housing.MeterRepository
	meterTypes billing.MeterTypeRepository
	tariffs    billing.TariffRepository
	logger     *zap.Logger

	typesByName map[string]*billing.MeterType
}

// NewSeeder creates a Seeder
func NewSeeder(
	houses housing.HouseRepository,
	apartments housing.ApartmentRepository,
	meters housing.MeterRepository,
	meterTypes billing.MeterTypeRepository,
	tariffs billing.TariffRepository,
	logger *zap.Logger,
) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		houses:     houses,
		apartments: apartments,
		meters:     meters,
		meterTypes: meterTypes,
		tariffs:    tariffs,
		logger:     logger,
	}
}

// Seed applies f and reports what was created
func (s *Seeder) Seed(ctx context.Context, f *Fixture) (Stats, error) {
	var stats Stats
	s.typesByName = make(map[string]*billing.MeterType)

	for _, mt := range f.MeterTypes {
		if err := s.seedMeterType(ctx, mt, &stats); err != nil {
			return stats, err
		}
	}
	for _, t := range f.Tariffs {
		if err := s.seedTariff(ctx, t, &stats); err != nil {
			return stats, err
		}
	}
	for _, h := range f.Houses {
		if err := s.seedHouse(ctx, h, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *Seeder) seedMeterType(ctx context.Context, f MeterTypeFixture, stats *Stats) error {
	mt, err := billing.NewMeterType(f.Name, f.Unit)
	if err != nil {
		return fmt.Errorf("meter type %q: %w", f.Name, err)
	}
	existing, err := s.meterTypes.FindByName(ctx, mt.Name)
	if err != nil && !shared.IsNotFound(err) {
		return err
	}
	if existing != nil {
		if existing.Unit != mt.Unit {
			s.logger.Warn("Meter type exists with a different unit",
				zap.String("name", mt.Name),
				zap.String("unit", existing.Unit),
			)
		}
		s.typesByName[mt.Name] = existing
		return nil
	}
	if err := s.meterTypes.Save(ctx, mt); err != nil {
		return fmt.Errorf("meter type %q: %w", mt.Name, err)
	}
	s.typesByName[mt.Name] = mt
	stats.MeterTypes++
	return nil
}

// meterType resolves a meter type by name from this run or from storage
func (s *Seeder) meterType(ctx context.Context, name string) (*billing.MeterType, error) {
	if mt, ok := s.typesByName[name]; ok {
		return mt, nil
	}
	mt, err := s.meterTypes.FindByName(ctx, name)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, fmt.Errorf("unknown meter type %q", name)
		}
		return nil, err
	}
	s.typesByName[name] = mt
	return mt, nil
}

func (s *Seeder) seedTariff(ctx context.Context, f TariffFixture, stats *Stats) error {
	price, err := parseDecimal("tariff price", f.Price)
	if err != nil {
		return err
	}

	var (
		tariff *billing.Tariff
		exists bool
	)
	if f.MeterType != "" {
		mt, err := s.meterType(ctx, f.MeterType)
		if err != nil {
			return err
		}
		if exists, err = s.tariffs.ExistsForMeterType(ctx, mt.ID); err != nil {
			return err
		}
		if !exists {
			if tariff, err = billing.NewMeterTariff(mt, price); err != nil {
				return fmt.Errorf("tariff for %q: %w", f.MeterType, err)
			}
		}
	} else {
		if tariff, err = billing.NewAreaTariff(f.Name, f.Unit, price); err != nil {
			return fmt.Errorf("tariff %q: %w", f.Name, err)
		}
		if exists, err = s.tariffs.ExistsForName(ctx, tariff.CustomName); err != nil {
			return err
		}
	}
	if exists {
		return nil
	}

	if err := s.tariffs.Save(ctx, tariff); err != nil {
		return fmt.Errorf("tariff %q: %w", tariff.DisplayName(), err)
	}
	stats.Tariffs++
	return nil
}

func (s *Seeder) seedHouse(ctx context.Context, f HouseFixture, stats *Stats) error {
	house, err := housing.NewHouse(f.Address)
	if err != nil {
		return fmt.Errorf("house %q: %w", f.Address, err)
	}
	existing, err := s.houses.FindByAddress(ctx, house.Address)
	if err != nil && !shared.IsNotFound(err) {
		return err
	}
	if existing != nil {
		house = existing
	} else {
		if err := s.houses.Save(ctx, house); err != nil {
			return fmt.Errorf("house %q: %w", house.Address, err)
		}
		stats.Houses++
		s.logger.Info("House seeded", zap.Int64("house_id", house.ID), zap.String("address", house.Address))
	}

	current, err := s.apartments.FindByHouse(ctx, house.ID)
	if err != nil {
		return err
	}
	matcher := newApartmentMatcher(current)
	for _, af := range f.Apartments {
		if err := s.seedApartment(ctx, house, af, matcher, stats); err != nil {
			return fmt.Errorf("house %q: %w", house.Address, err)
		}
	}
	return nil
}

func (s *Seeder) seedApartment(ctx context.Context, house *housing.House, f ApartmentFixture, matcher *apartmentMatcher, stats *Stats) error {
	apartment := matcher.match(f.Number)
	if apartment == nil {
		area, err := parseDecimal("apartment area", f.Area)
		if err != nil {
			return err
		}
		if apartment, err = housing.NewApartment(house.ID, f.Number, area); err != nil {
			return err
		}
		if err := s.apartments.Save(ctx, apartment); err != nil {
			return err
		}
		stats.Apartments++
	}

	current, err := s.meters.FindByApartment(ctx, apartment.ID)
	if err != nil {
		return err
	}
	for _, mf := range f.Meters {
		if err := s.seedMeter(ctx, apartment, mf, current, stats); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedMeter(ctx context.Context, apartment *housing.Apartment, f MeterFixture, current []housing.Meter, stats *Stats) error {
	mt, err := s.meterType(ctx, f.Type)
	if err != nil {
		return err
	}
	readings, err := f.readings()
	if err != nil {
		return err
	}

	for i := range current {
		m := &current[i]
		if m.MeterNumber != f.Number || m.MeterType.ID != mt.ID {
			continue
		}
		added := 0
		for _, p := range readings.Periods() {
			if v, ok := m.Readings.Get(p); ok {
				if !v.Equal(readings[p]) {
					s.logger.Warn("Keeping stored reading",
						zap.Int64("meter_id", m.ID),
						zap.String("period", p.String()),
						zap.String("stored", v.String()),
					)
				}
				continue
			}
			if err := m.AddReading(p, readings[p]); err != nil {
				return fmt.Errorf("meter %q: %w", f.Number, err)
			}
			added++
		}
		if added > 0 {
			if err := s.meters.SaveReadings(ctx, m); err != nil {
				return err
			}
			stats.Readings += added
		}
		return nil
	}

	meter, err := housing.NewMeter(apartment.ID, f.Number, *mt, readings)
	if err != nil {
		return fmt.Errorf("meter %q: %w", f.Number, err)
	}
	if err := s.meters.Save(ctx, meter); err != nil {
		return err
	}
	stats.Meters++
	stats.Readings += len(readings)
	return nil
}

// apartmentMatcher pairs fixture apartments with stored ones: numbered
// apartments by number, unnumbered ones in id order
type apartmentMatcher struct {
	byNumber   map[int]*housing.Apartment
	unnumbered []*housing.Apartment
}

func newApartmentMatcher(apartments []housing.Apartment) *apartmentMatcher {
	m := &apartmentMatcher{byNumber: make(map[int]*housing.Apartment)}
	for i := range apartments {
		a := &apartments[i]
		if a.Number != nil {
			m.byNumber[*a.Number] = a
		} else {
			m.unnumbered = append(m.unnumbered, a)
		}
	}
	return m
}

func (m *apartmentMatcher) match(number *int) *housing.Apartment {
	if number != nil {
		return m.byNumber[*number]
	}
	if len(m.unnumbered) == 0 {
		return nil
	}
	a := m.unnumbered[0]
	m.unnumbered = m.unnumbered[1:]
	return a
}
