package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pet-feeding/internal/model"
)

// HouseholdRepository manages households and their membership.
type HouseholdRepository struct {
	db        *gorm.DB
	chunkSize int
}

func NewHouseholdRepository(db *gorm.DB, chunkSize int) *HouseholdRepository {
	return &HouseholdRepository{db: db, chunkSize: chunkSize}
}

func (r *HouseholdRepository) Create(ctx context.Context, household *model.Household) error {
	if err := r.db.WithContext(ctx).Create(household).Error; err != nil {
		return fmt.Errorf("create household: %w", err)
	}
	return nil
}

func (r *HouseholdRepository) AddMember(ctx context.Context, householdID, userID uint, role string) error {
	member := model.HouseholdMember{HouseholdID: householdID, UserID: userID, Role: role}
	if err := r.db.WithContext(ctx).Create(&member).Error; err != nil {
		return fmt.Errorf("add household member: %w", err)
	}
	return nil
}

func (r *HouseholdRepository) IsMember(ctx context.Context, householdID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.HouseholdMember{}).
		Where("household_id = ? AND user_id = ?", householdID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// MembersOf returns the memberships of every listed household.
func (r *HouseholdRepository) MembersOf(ctx context.Context, householdIDs []uint) ([]model.HouseholdMember, error) {
	var members []model.HouseholdMember
	err := InChunks(Unique(householdIDs), r.chunkSize, func(chunk []uint) error {
		var part []model.HouseholdMember
		if err := r.db.WithContext(ctx).Where("household_id IN ?", chunk).
			Order("household_id, user_id").
			Find(&part).Error; err != nil {
			return fmt.Errorf("list household members: %w", err)
		}
		members = append(members, part...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
