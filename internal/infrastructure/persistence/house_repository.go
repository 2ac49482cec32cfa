package persistence

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

// GormHouseRepository implements HouseRepository using GORM
type GormHouseRepository struct {
	db *gorm.DB
}

// NewGormHouseRepository creates a new GormHouseRepository
func NewGormHouseRepository(db *gorm.DB) *GormHouseRepository {
	return &GormHouseRepository{db: db}
}

// FindByID finds a house by its ID. Apartments are loaded in ascending id order.
func (r *GormHouseRepository) FindByID(ctx context.Context, id int64) (*housing.House, error) {
	var model models.HouseModel
	err := r.db.WithContext(ctx).
		Preload("Apartments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, "house")
	}
	return model.ToDomain()
}

// FindByAddress finds a house by its normalized address
func (r *GormHouseRepository) FindByAddress(ctx context.Context, address string) (*housing.House, error) {
	var model models.HouseModel
	if err := r.db.WithContext(ctx).Where("address = ?", address).First(&model).Error; err != nil {
		return nil, translateError(err, "house")
	}
	return model.ToDomain()
}

// FindAll returns one page of houses and the total number of matches
func (r *GormHouseRepository) FindAll(ctx context.Context, filter shared.Filter) ([]housing.House, int64, error) {
	filter = filter.Normalize()

	// Count total
	var total int64
	countQuery := r.applySearch(r.db.WithContext(ctx).Model(&models.HouseModel{}), filter.Search)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.HouseModel
	err := r.applySearch(r.db.WithContext(ctx).Model(&models.HouseModel{}), filter.Search).
		Order(orderClause(filter.OrderBy, filter.OrderDir, HouseSortFields)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	houses := make([]housing.House, 0, len(rows))
	for i := range rows {
		h, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		houses = append(houses, *h)
	}
	return houses, total, nil
}

func (r *GormHouseRepository) applySearch(query *gorm.DB, search string) *gorm.DB {
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("LOWER(address) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	return query
}

// FindAllIDs returns the id of every house in ascending order
func (r *GormHouseRepository) FindAllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.HouseModel{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistsByID checks whether a house exists
func (r *GormHouseRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.HouseModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a house. Apartments are not written.
func (r *GormHouseRepository) Save(ctx context.Context, house *housing.House) error {
	model := models.HouseModelFromDomain(house)
	if err := r.db.WithContext(ctx).Omit("Apartments").Save(model).Error; err != nil {
		return translateError(err, "house")
	}
	house.BaseEntity = model.BaseModel.ToDomain()
	return nil
}

// Ensure GormHouseRepository implements HouseRepository
var _ housing.HouseRepository = (*GormHouseRepository)(nil)
