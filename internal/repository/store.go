package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one handle, which is either the pool or
// an open transaction.
type Store struct {
	db        *gorm.DB
	chunkSize int

	Users         *UserRepository
	Households    *HouseholdRepository
	Cats          *CatRepository
	Schedules     *ScheduleRepository
	Feedings      *FeedingRepository
	Scheduled     *ScheduledNotificationRepository
	Notifications *NotificationRepository
}

// NewStore wires every repository to db. chunkSize bounds key sets in batch queries.
func NewStore(db *gorm.DB, chunkSize int) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Store{
		db:            db,
		chunkSize:     chunkSize,
		Users:         NewUserRepository(db),
		Households:    NewHouseholdRepository(db, chunkSize),
		Cats:          NewCatRepository(db),
		Schedules:     NewScheduleRepository(db),
		Feedings:      NewFeedingRepository(db, chunkSize),
		Scheduled:     NewScheduledNotificationRepository(db, chunkSize),
		Notifications: NewNotificationRepository(db, chunkSize),
	}
}

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits if fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.chunkSize))
	})
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}
