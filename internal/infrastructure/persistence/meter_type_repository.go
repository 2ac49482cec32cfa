package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

// GormMeterTypeRepository implements MeterTypeRepository using GORM
type GormMeterTypeRepository struct {
	db *gorm.DB
}

// NewGormMeterTypeRepository creates a new GormMeterTypeRepository
func NewGormMeterTypeRepository(db *gorm.DB) *GormMeterTypeRepository {
	return &GormMeterTypeRepository{db: db}
}

// FindAll returns every meter type ordered by name
func (r *GormMeterTypeRepository) FindAll(ctx context.Context) ([]billing.MeterType, error) {
	var rows []models.MeterTypeModel
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	types := make([]billing.MeterType, 0, len(rows))
	for i := range rows {
		types = append(types, *rows[i].ToDomain())
	}
	return types, nil
}

// FindByID finds a meter type by its ID
func (r *GormMeterTypeRepository) FindByID(ctx context.Context, id int64) (*billing.MeterType, error) {
	var model models.MeterTypeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "meter type")
	}
	return model.ToDomain(), nil
}

// FindByName finds a meter type by its exact name
func (r *GormMeterTypeRepository) FindByName(ctx context.Context, name string) (*billing.MeterType, error) {
	var model models.MeterTypeModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		return nil, translateError(err, "meter type")
	}
	return model.ToDomain(), nil
}

// Save creates or updates a meter type
func (r *GormMeterTypeRepository) Save(ctx context.Context, mt *billing.MeterType) error {
	model := models.MeterTypeModelFromDomain(mt)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateError(err, "meter type")
	}
	mt.ID = model.ID
	return nil
}

// Ensure GormMeterTypeRepository implements MeterTypeRepository
var _ billing.MeterTypeRepository = (*GormMeterTypeRepository)(nil)
