package billing

import (
	"context"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
)

// TransactionScope provides transactional access to the repositories a billing run touches.
// All repository operations inside Execute are committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	HouseRepo() housing.HouseRepository
	ApartmentRepo() housing.ApartmentRepository
	MeterRepo() housing.MeterRepository
	TariffRepo() billing.TariffRepository
	BillRepo() billing.UtilityBillRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	houseRepo     housing.HouseRepository
	apartmentRepo housing.ApartmentRepository
	meterRepo     housing.MeterRepository
	tariffRepo    billing.TariffRepository
	billRepo      billing.UtilityBillRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	houseRepo housing.HouseRepository,
	apartmentRepo housing.ApartmentRepository,
	meterRepo housing.MeterRepository,
	tariffRepo billing.TariffRepository,
	billRepo billing.UtilityBillRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		houseRepo:     houseRepo,
		apartmentRepo: apartmentRepo,
		meterRepo:     meterRepo,
		tariffRepo:    tariffRepo,
		billRepo:      billRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// HouseRepo returns the house repository
func (s *NoOpTransactionScope) HouseRepo() housing.HouseRepository { return s.houseRepo }

// ApartmentRepo returns the apartment repository
func (s *NoOpTransactionScope) ApartmentRepo() housing.ApartmentRepository { return s.apartmentRepo }

// MeterRepo returns the meter repository
func (s *NoOpTransactionScope) MeterRepo() housing.MeterRepository { return s.meterRepo }

// TariffRepo returns the tariff repository
func (s *NoOpTransactionScope) TariffRepo() billing.TariffRepository { return s.tariffRepo }

// BillRepo returns the utility bill repository
func (s *NoOpTransactionScope) BillRepo() billing.UtilityBillRepository { return s.billRepo }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
