package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pet-feeding/internal/model"
)

// CatRepository handles cats.
type CatRepository struct {
	db *gorm.DB
}

func NewCatRepository(db *gorm.DB) *CatRepository {
	return &CatRepository{db: db}
}

func (r *CatRepository) Create(ctx context.Context, cat *model.Cat) error {
	if err := r.db.WithContext(ctx).Create(cat).Error; err != nil {
		return fmt.Errorf("create cat: %w", err)
	}
	return nil
}

func (r *CatRepository) FindByID(ctx context.Context, id uint) (*model.Cat, error) {
	var cat model.Cat
	if err := r.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListWithInterval returns every cat with a positive feeding interval.
func (r *CatRepository) ListWithInterval(ctx context.Context) ([]model.Cat, error) {
	var cats []model.Cat
	if err := r.db.WithContext(ctx).
		Where("feeding_interval IS NOT NULL AND feeding_interval > ?", 0).
		Order("id").
		Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list cats with interval: %w", err)
	}
	return cats, nil
}

// ListForUser returns cats from every household the user belongs to.
func (r *CatRepository) ListForUser(ctx context.Context, userID uint) ([]model.Cat, error) {
	var cats []model.Cat
	if err := r.db.WithContext(ctx).
		Joins("JOIN household_members hm ON hm.household_id = cats.household_id").
		Where("hm.user_id = ?", userID).
		Order("cats.name ASC").
		Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list cats for user: %w", err)
	}
	return cats, nil
}
