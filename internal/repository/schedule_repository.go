package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pet-feeding/internal/model"
)

// ScheduleRepository handles feeding schedules.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) ListEnabledByCat(ctx context.Context, catID uint) ([]model.Schedule, error) {
	var schedules []model.Schedule
	if err := r.db.WithContext(ctx).
		Where("cat_id = ? AND enabled = ?", catID, true).
		Order("id").
		Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}
