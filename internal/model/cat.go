package model

import "time"

// Cat is a pet owned by a household.
type Cat struct {
	ID              uint `gorm:"primaryKey"`
	HouseholdID     uint `gorm:"index"`
	Name            string
	FeedingInterval *int // hours, 1..24
	PortionSize     *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IntervalHours returns the cat's own feeding interval, or 0 if unset.
func (c Cat) IntervalHours() int {
	if c.FeedingInterval == nil || *c.FeedingInterval <= 0 {
		return 0
	}
	return *c.FeedingInterval
}
