package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

// GormUtilityBillRepository implements UtilityBillRepository using GORM
type GormUtilityBillRepository struct {
	db *gorm.DB
}

// NewGormUtilityBillRepository creates a new GormUtilityBillRepository
func NewGormUtilityBillRepository(db *gorm.DB) *GormUtilityBillRepository {
	return &GormUtilityBillRepository{db: db}
}

// Upsert inserts the bill, or replaces the charge of the bill already stored
// for the same apartment and month. The bill id is never reused for a different month.
func (r *GormUtilityBillRepository) Upsert(ctx context.Context, bill *billing.UtilityBill) error {
	model, err := models.UtilityBillModelFromDomain(bill)
	if err != nil {
		return err
	}
	model.ID = 0
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "apartment_id"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"charge", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return translateError(err, "utility bill")
	}

	stored, err := r.FindByApartmentAndMonth(ctx, bill.ApartmentID, bill.Period())
	if err != nil {
		return err
	}
	*bill = *stored
	return nil
}

// FindByApartment returns the bills of an apartment, newest month first
func (r *GormUtilityBillRepository) FindByApartment(ctx context.Context, apartmentID int64) ([]billing.UtilityBill, error) {
	var rows []models.UtilityBillModel
	err := r.db.WithContext(ctx).
		Where("apartment_id = ?", apartmentID).
		Order("month DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return billsToDomain(rows)
}

// FindByApartmentAndMonth finds the bill of an apartment for one period
func (r *GormUtilityBillRepository) FindByApartmentAndMonth(ctx context.Context, apartmentID int64, period billing.Period) (*billing.UtilityBill, error) {
	var model models.UtilityBillModel
	err := r.db.WithContext(ctx).
		Where("apartment_id = ? AND month = ?", apartmentID, period.FirstDay()).
		First(&model).Error
	if err != nil {
		return nil, translateError(err, "utility bill")
	}
	return model.ToDomain()
}

// FindByHouseAndMonth returns the bills of every apartment of a house for
// one period, in ascending apartment id order
func (r *GormUtilityBillRepository) FindByHouseAndMonth(ctx context.Context, houseID int64, period billing.Period) ([]billing.UtilityBill, error) {
	var rows []models.UtilityBillModel
	err := r.db.WithContext(ctx).
		Joins("JOIN apartments ON apartments.id = utility_bills.apartment_id").
		Where("apartments.house_id = ? AND utility_bills.month = ?", houseID, period.FirstDay()).
		Order("utility_bills.apartment_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return billsToDomain(rows)
}

func billsToDomain(rows []models.UtilityBillModel) ([]billing.UtilityBill, error) {
	bills := make([]billing.UtilityBill, 0, len(rows))
	for i := range rows {
		b, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, nil
}

// Ensure GormUtilityBillRepository implements UtilityBillRepository
var _ billing.UtilityBillRepository = (*GormUtilityBillRepository)(nil)
