package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType classifies user-visible notifications.
type NotificationType string

const (
	NotificationReminder NotificationType = "reminder"
	NotificationWarning  NotificationType = "warning"
	NotificationFeeding  NotificationType = "feeding"
	NotificationSystem   NotificationType = "system"
)

// Notification is what a user actually sees. DedupKey is unique per user, so
// inserting the same logical notification twice collides. PushAttempts counts
// failed chat sends; PushedAt is set once a send succeeds.
type Notification struct {
	ID           string           `gorm:"primaryKey;type:TEXT"`
	UserID       uint             `gorm:"uniqueIndex:idx_notification_user_dedup,priority:1;index"`
	CatID        *uint            `gorm:"index"`
	Type         NotificationType `gorm:"index"`
	Title        string
	Message      string
	Metadata     datatypes.JSON
	DedupKey     *string `gorm:"uniqueIndex:idx_notification_user_dedup,priority:2"`
	IsRead       bool
	PushedAt     *time.Time
	PushAttempts int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
