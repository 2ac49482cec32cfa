package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

// newTestDB opens an in-memory sqlite database with every table migrated.
// A single connection keeps all queries on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// newMockDB creates a gorm connection backed by sqlmock with the postgres dialect
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int {
	return &v
}

// seedHouse stores a house with one apartment per area and returns them
func seedHouse(t *testing.T, db *gorm.DB, address string, areas ...string) (*housing.House, []housing.Apartment) {
	t.Helper()
	ctx := context.Background()

	house, err := housing.NewHouse(address)
	require.NoError(t, err)
	require.NoError(t, NewGormHouseRepository(db).Save(ctx, house))

	apartments := make([]housing.Apartment, 0, len(areas))
	repo := NewGormApartmentRepository(db)
	for i, area := range areas {
		apt, err := housing.NewApartment(house.ID, intPtr(i+1), dec(area))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, apt))
		apartments = append(apartments, *apt)
	}
	return house, apartments
}

func seedMeterType(t *testing.T, db *gorm.DB, name, unit string) *billing.MeterType {
	t.Helper()
	mt, err := billing.NewMeterType(name, unit)
	require.NoError(t, err)
	require.NoError(t, NewGormMeterTypeRepository(db).Save(context.Background(), mt))
	return mt
}
