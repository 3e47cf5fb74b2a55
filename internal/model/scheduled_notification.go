package model

import "time"

// ScheduledNotification is a durable intent to notify a user at DeliverAt.
// Delivered flips from false to true exactly once. Suppressed marks a
// reminder resolved without a notification because the cat was already fed.
type ScheduledNotification struct {
	ID          uint `gorm:"primaryKey"`
	UserID      uint `gorm:"index"`
	CatID       *uint
	Type        NotificationType
	Title       string
	Message     string
	DeliverAt   time.Time `gorm:"index:idx_scheduled_due,priority:2"`
	Delivered   bool      `gorm:"index:idx_scheduled_due,priority:1"`
	DeliveredAt *time.Time
	Suppressed  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
