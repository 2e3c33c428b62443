package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/infrastructure/persistence/models"
)

// GormDeadLetterRepository implements order.DeadLetterRepository using GORM
type GormDeadLetterRepository struct {
	db *gorm.DB
}

// NewGormDeadLetterRepository creates a new GormDeadLetterRepository
func NewGormDeadLetterRepository(db *gorm.DB) *GormDeadLetterRepository {
	return &GormDeadLetterRepository{db: db}
}

var _ order.DeadLetterRepository = (*GormDeadLetterRepository)(nil)

// Save creates or updates an entry by its idempotency key
func (r *GormDeadLetterRepository) Save(ctx context.Context, entry *order.DeadLetterEntry) error {
	model := models.DeadLetterModelFromDomain(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"payload", "attempts", "last_error", "last_attempt_at",
			}),
		}).
		Create(model).Error
}

// FindByKey returns the entry for the key
func (r *GormDeadLetterRepository) FindByKey(ctx context.Context, key string) (*order.DeadLetterEntry, error) {
	var model models.DeadLetterModel
	if err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrDeadLetterNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all entries, oldest failure first
func (r *GormDeadLetterRepository) FindAll(ctx context.Context) ([]order.DeadLetterEntry, error) {
	var entryModels []models.DeadLetterModel
	if err := r.db.WithContext(ctx).
		Order("first_failed_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}

	entries := make([]order.DeadLetterEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, nil
}

// Delete removes an entry after successful replay
func (r *GormDeadLetterRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Delete(&models.DeadLetterModel{}, "key = ?", key).Error
}

// Count returns the current queue depth, including abandoned entries
func (r *GormDeadLetterRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DeadLetterModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
