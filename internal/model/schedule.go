package model

import "time"

// ScheduleType tells how a schedule computes feeding times.
type ScheduleType string

const (
	ScheduleInterval  ScheduleType = "interval"
	ScheduleFixedTime ScheduleType = "fixedTime"
)

// Schedule is a feeding plan attached to a cat.
type Schedule struct {
	ID            uint `gorm:"primaryKey"`
	CatID         uint `gorm:"index"`
	Type          ScheduleType
	Interval      *int   // hours, only for interval schedules
	Times         string // comma separated HH:MM, only for fixed-time schedules
	OverrideUntil *time.Time
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
