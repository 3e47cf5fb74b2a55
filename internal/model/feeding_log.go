package model

import "time"

// FeedingLog records one feeding. Rows are never updated.
type FeedingLog struct {
	ID          uint      `gorm:"primaryKey"`
	CatID       uint      `gorm:"index:idx_feeding_cat_time,priority:1"`
	FedAt       time.Time `gorm:"index:idx_feeding_cat_time,priority:2"`
	HouseholdID uint      `gorm:"index"`
	FedBy       uint
	Amount      *float64
	Unit        string
	MealType    string
	Notes       string
	CreatedAt   time.Time
}
