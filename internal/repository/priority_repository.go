package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-manager/internal/model"
)

// PriorityRepository reads the global priority table.
type PriorityRepository struct {
	db *gorm.DB
}

func NewPriorityRepository(db *gorm.DB) *PriorityRepository {
	return &PriorityRepository{db: db}
}

func (r *PriorityRepository) List(ctx context.Context) ([]model.Priority, error) {
	priorities := []model.Priority{}
	if err := r.db.WithContext(ctx).Order("level ASC").Find(&priorities).Error; err != nil {
		return nil, fmt.Errorf("list priorities: %w", err)
	}
	return priorities, nil
}

func (r *PriorityRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Priority{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check priority: %w", err)
	}
	return count > 0, nil
}

// SeedDefaults inserts the default priorities, skipping names that already exist.
func (r *PriorityRepository) SeedDefaults(ctx context.Context) error {
	defaults := model.DefaultPriorities()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&defaults).Error
	if err != nil {
		return fmt.Errorf("seed priorities: %w", err)
	}
	return nil
}
