package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

// GormTariffRepository implements TariffRepository using GORM
type GormTariffRepository struct {
	db *gorm.DB
}

// NewGormTariffRepository creates a new GormTariffRepository
func NewGormTariffRepository(db *gorm.DB) *GormTariffRepository {
	return &GormTariffRepository{db: db}
}

// FindAll returns every tariff with its meter type, in ascending id order
func (r *GormTariffRepository) FindAll(ctx context.Context) ([]*billing.Tariff, error) {
	var rows []models.TariffModel
	if err := r.db.WithContext(ctx).Preload("MeterType").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	tariffs := make([]*billing.Tariff, 0, len(rows))
	for i := range rows {
		tariffs = append(tariffs, rows[i].ToDomain())
	}
	return tariffs, nil
}

// FindByID finds a tariff by its ID
func (r *GormTariffRepository) FindByID(ctx context.Context, id int64) (*billing.Tariff, error) {
	var model models.TariffModel
	if err := r.db.WithContext(ctx).Preload("MeterType").First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "tariff")
	}
	return model.ToDomain(), nil
}

// ExistsForMeterType reports whether a tariff already prices the meter type
func (r *GormTariffRepository) ExistsForMeterType(ctx context.Context, meterTypeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TariffModel{}).
		Where("meter_type_id = ?", meterTypeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsForName reports whether an area tariff with the custom name exists
func (r *GormTariffRepository) ExistsForName(ctx context.Context, customName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TariffModel{}).
		Where("meter_type_id IS NULL AND custom_name = ?", customName).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a tariff
func (r *GormTariffRepository) Save(ctx context.Context, t *billing.Tariff) error {
	model := models.TariffModelFromDomain(t)
	if err := r.db.WithContext(ctx).Omit("MeterType").Save(model).Error; err != nil {
		return translateError(err, "tariff")
	}
	t.ID = model.ID
	t.CreatedAt = model.CreatedAt
	t.UpdatedAt = model.UpdatedAt
	return nil
}

// Ensure GormTariffRepository implements TariffRepository
var _ billing.TariffRepository = (*GormTariffRepository)(nil)
