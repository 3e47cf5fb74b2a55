package model

import "time"

// User stores member profile data relevant to feeding and notifications.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID *int64  `gorm:"uniqueIndex"`
	APIToken   *string `gorm:"uniqueIndex"`
	Name       string
	Timezone   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Location resolves the user's timezone. Unknown or empty names fall back to fallback.
func (u User) Location(fallback *time.Location) *time.Location {
	if u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
