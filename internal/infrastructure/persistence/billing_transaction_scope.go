package persistence

import (
	"context"

	"gorm.io/gorm"

	appbilling "github.com/communal/backend/internal/application/billing"
	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) HouseRepo() housing.HouseRepository {
	return NewGormHouseRepository(r.tx)
}

func (r *gormTransactionalRepositories) ApartmentRepo() housing.ApartmentRepository {
	return NewGormApartmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) MeterRepo() housing.MeterRepository {
	return NewGormMeterRepository(r.tx)
}

func (r *gormTransactionalRepositories) TariffRepo() billing.TariffRepository {
	return NewGormTariffRepository(r.tx)
}

func (r *gormTransactionalRepositories) BillRepo() billing.UtilityBillRepository {
	return NewGormUtilityBillRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appbilling.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appbilling.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
