package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

// GormMeterRepository implements MeterRepository using GORM
type GormMeterRepository struct {
	db *gorm.DB
}

// NewGormMeterRepository creates a new GormMeterRepository
func NewGormMeterRepository(db *gorm.DB) *GormMeterRepository {
	return &GormMeterRepository{db: db}
}

// FindByID finds a meter by its ID together with its meter type
func (r *GormMeterRepository) FindByID(ctx context.Context, id int64) (*housing.Meter, error) {
	var model models.MeterModel
	if err := r.db.WithContext(ctx).Preload("MeterType").First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "meter")
	}
	return model.ToDomain()
}

// FindByApartment returns the meters of an apartment in ascending id order
func (r *GormMeterRepository) FindByApartment(ctx context.Context, apartmentID int64) ([]housing.Meter, error) {
	var rows []models.MeterModel
	err := r.db.WithContext(ctx).
		Preload("MeterType").
		Where("apartment_id = ?", apartmentID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return metersToDomain(rows)
}

// FindByHouse returns every meter of every apartment of a house, ordered by
// apartment and then meter id
func (r *GormMeterRepository) FindByHouse(ctx context.Context, houseID int64) ([]housing.Meter, error) {
	var rows []models.MeterModel
	err := r.db.WithContext(ctx).
		Preload("MeterType").
		Joins("JOIN apartments ON apartments.id = meters.apartment_id").
		Where("apartments.house_id = ?", houseID).
		Order("meters.apartment_id ASC, meters.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return metersToDomain(rows)
}

// Save creates or updates a meter
func (r *GormMeterRepository) Save(ctx context.Context, meter *housing.Meter) error {
	model, err := models.MeterModelFromDomain(meter)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit("MeterType").Save(model).Error; err != nil {
		return translateError(err, "meter")
	}
	meter.BaseEntity = model.BaseModel.ToDomain()
	return nil
}

// SaveReadings stores the readings of an existing meter. The write only
// applies when the stored version still equals meter.Version; otherwise it
// returns shared.ErrConcurrentModification and the caller must reload.
func (r *GormMeterRepository) SaveReadings(ctx context.Context, meter *housing.Meter) error {
	readings, err := models.EncodeReadings(meter.Readings)
	if err != nil {
		return err
	}
	now := time.Now()
	next := meter.Version + 1
	result := r.db.WithContext(ctx).Model(&models.MeterModel{}).
		Where("id = ? AND version = ?", meter.ID, meter.Version).
		Updates(map[string]any{"readings": readings, "version": next, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.MeterModel{}).Where("id = ?", meter.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return translateError(gorm.ErrRecordNotFound, "meter")
		}
		return shared.NewDomainErrorf(shared.CodeConcurrentModification,
			"Meter %d was modified concurrently", meter.ID)
	}
	meter.Version = next
	meter.UpdatedAt = now
	return nil
}

func metersToDomain(rows []models.MeterModel) ([]housing.Meter, error) {
	meters := make([]housing.Meter, 0, len(rows))
	for i := range rows {
		m, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		meters = append(meters, *m)
	}
	return meters, nil
}

// Ensure GormMeterRepository implements MeterRepository
var _ housing.MeterRepository = (*GormMeterRepository)(nil)
