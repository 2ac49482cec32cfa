package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphousing "github.com/communal/backend/internal/application/housing"
	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/persistence"
)

func TestPostgresRepositories_Integration(t *testing.T) {
	testDB := NewTestDB(t)
	ctx := context.Background()

	houses := persistence.NewGormHouseRepository(testDB.DB)
	apartments := persistence.NewGormApartmentRepository(testDB.DB)
	bills := persistence.NewGormUtilityBillRepository(testDB.DB)
	progress := persistence.NewGormProgressRepository(testDB.DB)

	house, err := housing.NewHouse("9 Mill Street")
	require.NoError(t, err)
	require.NoError(t, houses.Save(ctx, house))

	t.Run("unique address maps to ALREADY_EXISTS", func(t *testing.T) {
		dup, err := housing.NewHouse("9  Mill Street")
		require.NoError(t, err)
		err = houses.Save(ctx, dup)
		require.Error(t, err)
		assert.Equal(t, shared.CodeAlreadyExists, shared.CodeOf(err))
	})

	t.Run("bill upsert keeps one row per month", func(t *testing.T) {
		apt, err := housing.NewApartment(house.ID, nil, decimal.NewFromInt(40))
		require.NoError(t, err)
		require.NoError(t, apartments.Save(ctx, apt))

		period, err := billing.NewPeriod(2024, 6)
		require.NoError(t, err)

		first := billing.NewUtilityBill(apt.ID, period, billing.Charge{
			{TariffID: 1, Name: "Maintenance", Consumption: decimal.NewFromInt(40), Unit: "m2", Cost: decimal.NewFromInt(48)},
		})
		require.NoError(t, bills.Upsert(ctx, first))

		second := billing.NewUtilityBill(apt.ID, period, billing.Charge{
			{TariffID: 1, Name: "Maintenance", Consumption: decimal.NewFromInt(40), Unit: "m2", Cost: decimal.NewFromInt(52)},
		})
		require.NoError(t, bills.Upsert(ctx, second))
		assert.Equal(t, first.ID, second.ID)

		stored, err := bills.FindByApartment(ctx, apt.ID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "52.00", stored[0].Total())

		byHouse, err := bills.FindByHouseAndMonth(ctx, house.ID, period)
		require.NoError(t, err)
		assert.Len(t, byHouse, 1)
	})

	t.Run("stale progress records", func(t *testing.T) {
		period, err := billing.NewPeriod(2024, 7)
		require.NoError(t, err)

		stale := billing.NewCalculationProgress(uuid.NewString(), house.ID, period)
		require.NoError(t, progress.Create(ctx, stale))
		fresh := billing.NewCalculationProgress(uuid.NewString(), house.ID, period)
		require.NoError(t, progress.Create(ctx, fresh))

		past := time.Now().Add(-time.Hour)
		require.NoError(t, testDB.DB.Exec("UPDATE calculation_progress SET updated_at = ? WHERE job_id = ?", past, stale.JobID).Error)

		found, err := progress.FindStale(ctx, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, stale.JobID, found[0].JobID)

		require.NoError(t, progress.Touch(ctx, stale.JobID, time.Now()))
		found, err = progress.FindStale(ctx, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestConcurrentReadings_Integration(t *testing.T) {
	testDB := NewTestDB(t)
	ctx := context.Background()

	houses := persistence.NewGormHouseRepository(testDB.DB)
	apartments := persistence.NewGormApartmentRepository(testDB.DB)
	meters := persistence.NewGormMeterRepository(testDB.DB)
	meterTypes := persistence.NewGormMeterTypeRepository(testDB.DB)
	svc := apphousing.NewHousingService(houses, apartments, meters, meterTypes, nil)

	house, err := housing.NewHouse("17 Quay Street")
	require.NoError(t, err)
	require.NoError(t, houses.Save(ctx, house))
	apt, err := housing.NewApartment(house.ID, nil, decimal.NewFromInt(45))
	require.NoError(t, err)
	require.NoError(t, apartments.Save(ctx, apt))
	water, err := billing.NewMeterType("Cold water", "m3")
	require.NoError(t, err)
	require.NoError(t, meterTypes.Save(ctx, water))

	newMeter := func(initial billing.Readings) *housing.Meter {
		m, err := housing.NewMeter(apt.ID, "W-9", *water, initial)
		require.NoError(t, err)
		require.NoError(t, meters.Save(ctx, m))
		return m
	}

	t.Run("same period is written once", func(t *testing.T) {
		meter := newMeter(nil)
		const writers = 6
		errs := make([]error, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.AddReading(ctx, meter.ID, apphousing.AddReadingRequest{
					Period: billing.MustPeriod(2024, 9),
					Value:  decimal.NewFromInt(int64(10 * (i + 1))),
				})
			}(i)
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.True(t, shared.IsInvalidInput(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, ok)

		stored, err := meters.FindByID(ctx, meter.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Readings, 1)
	})

	t.Run("different periods are all kept", func(t *testing.T) {
		meter := newMeter(billing.Readings{billing.MustPeriod(2024, 1): decimal.NewFromInt(1)})
		periods := []billing.Period{billing.MustPeriod(2024, 2), billing.MustPeriod(2024, 3), billing.MustPeriod(2024, 4)}
		errs := make([]error, len(periods))
		var wg sync.WaitGroup
		for i, p := range periods {
			wg.Add(1)
			go func(i int, p billing.Period) {
				defer wg.Done()
				_, errs[i] = svc.AddReading(ctx, meter.ID, apphousing.AddReadingRequest{Period: p, Value: decimal.NewFromInt(5)})
			}(i, p)
		}
		wg.Wait()

		stored, err := meters.FindByID(ctx, meter.ID)
		require.NoError(t, err)
		for i, p := range periods {
			require.NoError(t, errs[i])
			assert.True(t, stored.Readings.Has(p), "reading %s lost", p)
		}
		assert.Equal(t, 1+len(periods), stored.Version)
	})
}

func TestConcurrentTariffs_Integration(t *testing.T) {
	testDB := NewTestDB(t)
	ctx := context.Background()

	meterTypes := persistence.NewGormMeterTypeRepository(testDB.DB)
	tariffs := persistence.NewGormTariffRepository(testDB.DB)
	svc := apphousing.NewTariffService(tariffs, meterTypes)

	gas, err := billing.NewMeterType("Gas", "m3")
	require.NoError(t, err)
	require.NoError(t, meterTypes.Save(ctx, gas))

	const writers = 5
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateTariff(ctx, apphousing.CreateTariffRequest{
				MeterTypeID:  &gas.ID,
				PricePerUnit: decimal.NewFromInt(int64(i + 1)),
			})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, shared.CodeAlreadyExists, shared.CodeOf(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	all, err := tariffs.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMigrations_Integration(t *testing.T) {
	testDB := NewTestDB(t)
	m := testDB.Migrator()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, m.Down())
	var tables int64
	require.NoError(t, testDB.DB.Raw(`
		SELECT COUNT(*) FROM pg_tables
		WHERE schemaname = 'public' AND tablename != 'schema_migrations'
	`).Scan(&tables).Error)
	assert.Zero(t, tables)

	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, m.Up())
	assert.True(t, testDB.DB.Migrator().HasTable("utility_bills"))

	// Up again is a no-op
	require.NoError(t, m.Up())
}
