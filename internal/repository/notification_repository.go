package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pet-feeding/internal/model"
)

// NotificationRepository persists user-visible notifications.
type NotificationRepository struct {
	db        *gorm.DB
	chunkSize int
}

func NewNotificationRepository(db *gorm.DB, chunkSize int) *NotificationRepository {
	return &NotificationRepository{db: db, chunkSize: chunkSize}
}

// CreateMany inserts items, silently skipping any that collide with an
// existing (user, dedup key) pair. It returns how many rows were inserted.
func (r *NotificationRepository) CreateMany(ctx context.Context, items []model.Notification) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&items, r.chunkSize)
	if res.Error != nil {
		return 0, fmt.Errorf("create notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// WarningKeys returns the dedup keys of warnings already raised for the cats.
func (r *NotificationRepository) WarningKeys(ctx context.Context, catIDs []uint) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := InChunks(Unique(catIDs), r.chunkSize, func(chunk []uint) error {
		var part []string
		if err := r.db.WithContext(ctx).Model(&model.Notification{}).
			Distinct("dedup_key").
			Where("type = ? AND cat_id IN ? AND dedup_key IS NOT NULL", model.NotificationWarning, chunk).
			Pluck("dedup_key", &part).Error; err != nil {
			return fmt.Errorf("list warning keys: %w", err)
		}
		for _, k := range part {
			keys[k] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.Notification, error) {
	var items []model.Notification
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MaxPushAttempts is how many failed sends a notification gets before it is
// no longer offered for push.
const MaxPushAttempts = 3

// ListUnpushed returns notifications not yet pushed to a chat, restricted to
// users linked to Telegram. Rows with fewer failed attempts come first, then
// oldest first; rows that failed MaxPushAttempts times are left out.
func (r *NotificationRepository) ListUnpushed(ctx context.Context, limit int) ([]model.Notification, error) {
	var items []model.Notification
	if err := r.db.WithContext(ctx).
		Joins("JOIN users u ON u.id = notifications.user_id").
		Where("notifications.pushed_at IS NULL AND u.telegram_id IS NOT NULL AND notifications.push_attempts < ?", MaxPushAttempts).
		Order("notifications.push_attempts ASC, notifications.created_at ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list unpushed notifications: %w", err)
	}
	return items, nil
}

func (r *NotificationRepository) MarkPushed(ctx context.Context, ids []string, at time.Time) error {
	return InChunks(ids, r.chunkSize, func(chunk []string) error {
		if err := r.db.WithContext(ctx).Model(&model.Notification{}).
			Where("id IN ?", chunk).
			Update("pushed_at", at.UTC()).Error; err != nil {
			return fmt.Errorf("mark notifications pushed: %w", err)
		}
		return nil
	})
}

// MarkPushFailed records one more failed send for each id.
func (r *NotificationRepository) MarkPushFailed(ctx context.Context, ids []string) error {
	return InChunks(ids, r.chunkSize, func(chunk []string) error {
		if err := r.db.WithContext(ctx).Model(&model.Notification{}).
			Where("id IN ?", chunk).
			UpdateColumn("push_attempts", gorm.Expr("push_attempts + ?", 1)).Error; err != nil {
			return fmt.Errorf("mark notifications push failed: %w", err)
		}
		return nil
	})
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
