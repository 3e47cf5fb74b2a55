package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pet-feeding/internal/model"
)

// ScheduledNotificationRepository persists future reminders.
type ScheduledNotificationRepository struct {
	db        *gorm.DB
	chunkSize int
}

func NewScheduledNotificationRepository(db *gorm.DB, chunkSize int) *ScheduledNotificationRepository {
	return &ScheduledNotificationRepository{db: db, chunkSize: chunkSize}
}

func (r *ScheduledNotificationRepository) CreateMany(ctx context.Context, items []model.ScheduledNotification) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].DeliverAt = items[i].DeliverAt.UTC()
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&items, r.chunkSize).Error; err != nil {
		return fmt.Errorf("create scheduled notifications: %w", err)
	}
	return nil
}

// ListDue returns undelivered rows whose DeliverAt is at or before now.
func (r *ScheduledNotificationRepository) ListDue(ctx context.Context, now time.Time) ([]model.ScheduledNotification, error) {
	var due []model.ScheduledNotification
	if err := r.db.WithContext(ctx).
		Where("delivered = ? AND deliver_at <= ?", false, now.UTC()).
		Order("deliver_at, id").
		Find(&due).Error; err != nil {
		return nil, fmt.Errorf("list due scheduled notifications: %w", err)
	}
	return due, nil
}

// Claim marks the listed rows delivered, but only those still undelivered,
// and returns exactly the rows this call flipped. A concurrent claimer that
// loses the race gets nothing back for the contested rows.
func (r *ScheduledNotificationRepository) Claim(ctx context.Context, ids []uint, now time.Time) ([]model.ScheduledNotification, error) {
	deliveredAt := now.UTC()
	var claimed []model.ScheduledNotification
	err := InChunks(Unique(ids), r.chunkSize, func(chunk []uint) error {
		var part []model.ScheduledNotification
		if err := r.db.WithContext(ctx).
			Model(&part).
			Clauses(clause.Returning{}).
			Where("id IN ? AND delivered = ?", chunk, false).
			Updates(map[string]any{"delivered": true, "delivered_at": deliveredAt}).Error; err != nil {
			return fmt.Errorf("claim scheduled notifications: %w", err)
		}
		claimed = append(claimed, part...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkSuppressed flags claimed rows that were resolved without a notification.
func (r *ScheduledNotificationRepository) MarkSuppressed(ctx context.Context, ids []uint) error {
	return InChunks(ids, r.chunkSize, func(chunk []uint) error {
		if err := r.db.WithContext(ctx).Model(&model.ScheduledNotification{}).
			Where("id IN ?", chunk).
			Update("suppressed", true).Error; err != nil {
			return fmt.Errorf("mark scheduled notifications suppressed: %w", err)
		}
		return nil
	})
}

// ListPendingForUser returns up to limit undelivered rows of userID, soonest first.
func (r *ScheduledNotificationRepository) ListPendingForUser(ctx context.Context, userID uint, limit int) ([]model.ScheduledNotification, error) {
	var pending []model.ScheduledNotification
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND delivered = ?", userID, false).
		Order("deliver_at").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("list pending scheduled notifications: %w", err)
	}
	return pending, nil
}
