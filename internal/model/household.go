package model

import "time"

// Household groups members that share the care of cats.
type Household struct {
	ID        uint `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Members   []HouseholdMember `gorm:"foreignKey:HouseholdID"`
	Cats      []Cat             `gorm:"foreignKey:HouseholdID"`
}

// HouseholdMember links a user to a household.
type HouseholdMember struct {
	ID          uint `gorm:"primaryKey"`
	HouseholdID uint `gorm:"uniqueIndex:idx_household_member,priority:1"`
	UserID      uint `gorm:"uniqueIndex:idx_household_member,priority:2;index"`
	Role        string
	CreatedAt   time.Time
}
