package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/persistence/models"
)

var unfinishedStatuses = []string{string(billing.ProgressQueued), string(billing.ProgressRunning)}

// GormProgressRepository implements ProgressRepository using GORM
type GormProgressRepository struct {
	db *gorm.DB
}

// NewGormProgressRepository creates a new GormProgressRepository
func NewGormProgressRepository(db *gorm.DB) *GormProgressRepository {
	return &GormProgressRepository{db: db}
}

// Create inserts a new progress record
func (r *GormProgressRepository) Create(ctx context.Context, p *billing.CalculationProgress) error {
	model := models.CalculationProgressModelFromDomain(p)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, "calculation progress")
	}
	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

// Update writes the status and error message of an existing record. A
// record that already finished is not overwritten and INVALID_STATE is returned.
func (r *GormProgressRepository) Update(ctx context.Context, p *billing.CalculationProgress) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	var errMsg *string
	if p.ErrorMessage != "" {
		errMsg = &p.ErrorMessage
	}
	result := r.db.WithContext(ctx).Model(&models.CalculationProgressModel{}).
		Where("id = ? AND status IN ?", p.ID, unfinishedStatuses).
		Updates(map[string]any{
			"status":        string(p.Status),
			"error_message": errMsg,
			"updated_at":    p.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	current, err := r.FindByID(ctx, p.ID)
	if err != nil {
		return err
	}
	return shared.NewDomainErrorf(shared.CodeInvalidState,
		"calculation progress %d is already %s", p.ID, current.Status)
}

// FindByID finds a progress record by its ID
func (r *GormProgressRepository) FindByID(ctx context.Context, id int64) (*billing.CalculationProgress, error) {
	var model models.CalculationProgressModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "calculation progress")
	}
	return model.ToDomain(), nil
}

// FindByJobID finds the progress record created for a job
func (r *GormProgressRepository) FindByJobID(ctx context.Context, jobID string) (*billing.CalculationProgress, error) {
	var model models.CalculationProgressModel
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&model).Error; err != nil {
		return nil, translateError(err, "calculation progress")
	}
	return model.ToDomain(), nil
}

// FindByHouse returns the latest records of a house, newest first
func (r *GormProgressRepository) FindByHouse(ctx context.Context, houseID int64, limit int) ([]billing.CalculationProgress, error) {
	var rows []models.CalculationProgressModel
	query := r.db.WithContext(ctx).Where("house_id = ?", houseID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return progressToDomain(rows), nil
}

// FindStale returns queued or running records whose heartbeat is older than before
func (r *GormProgressRepository) FindStale(ctx context.Context, before time.Time) ([]billing.CalculationProgress, error) {
	var rows []models.CalculationProgressModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", unfinishedStatuses, before).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return progressToDomain(rows), nil
}

// Touch refreshes the heartbeat of an unfinished record. Finished records are left alone.
func (r *GormProgressRepository) Touch(ctx context.Context, jobID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.CalculationProgressModel{}).
		Where("job_id = ? AND status IN ?", jobID, unfinishedStatuses).
		Update("updated_at", at).Error
}

func progressToDomain(rows []models.CalculationProgressModel) []billing.CalculationProgress {
	out := make([]billing.CalculationProgress, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

// Ensure GormProgressRepository implements ProgressRepository
var _ billing.ProgressRepository = (*GormProgressRepository)(nil)
