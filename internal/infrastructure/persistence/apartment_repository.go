package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

// GormApartmentRepository implements ApartmentRepository using GORM
type GormApartmentRepository struct {
	db *gorm.DB
}

// NewGormApartmentRepository creates a new GormApartmentRepository
func NewGormApartmentRepository(db *gorm.DB) *GormApartmentRepository {
	return &GormApartmentRepository{db: db}
}

// FindByID finds an apartment by its ID
func (r *GormApartmentRepository) FindByID(ctx context.Context, id int64) (*housing.Apartment, error) {
	var model models.ApartmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "apartment")
	}
	return model.ToDomain()
}

// FindByHouse returns the apartments of a house in ascending id order
func (r *GormApartmentRepository) FindByHouse(ctx context.Context, houseID int64) ([]housing.Apartment, error) {
	var rows []models.ApartmentModel
	if err := r.db.WithContext(ctx).Where("house_id = ?", houseID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	apartments := make([]housing.Apartment, 0, len(rows))
	for i := range rows {
		a, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		apartments = append(apartments, *a)
	}
	return apartments, nil
}

// Save creates or updates an apartment. Meters and bills are not written.
func (r *GormApartmentRepository) Save(ctx context.Context, apartment *housing.Apartment) error {
	model := models.ApartmentModelFromDomain(apartment)
	if err := r.db.WithContext(ctx).Omit("Meters", "Bills").Save(model).Error; err != nil {
		return translateError(err, "apartment")
	}
	apartment.BaseEntity = model.BaseModel.ToDomain()
	return nil
}

// Ensure GormApartmentRepository implements ApartmentRepository
var _ housing.ApartmentRepository = (*GormApartmentRepository)(nil)
