package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"pet-feeding/internal/model"
)

// CatSince pairs a cat with an instant; batch lookups ask whether the cat
// was fed after it.
type CatSince struct {
	CatID uint
	Since time.Time
}

// FeedingRepository handles feeding logs.
type FeedingRepository struct {
	db        *gorm.DB
	chunkSize int
}

func NewFeedingRepository(db *gorm.DB, chunkSize int) *FeedingRepository {
	return &FeedingRepository{db: db, chunkSize: chunkSize}
}

func (r *FeedingRepository) Create(ctx context.Context, log *model.FeedingLog) error {
	log.FedAt = log.FedAt.UTC()
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("create feeding log: %w", err)
	}
	return nil
}

// Latest returns the most recent feeding of catID, or nil if it was never fed.
func (r *FeedingRepository) Latest(ctx context.Context, catID uint) (*model.FeedingLog, error) {
	var log model.FeedingLog
	err := r.db.WithContext(ctx).Where("cat_id = ?", catID).Order("fed_at DESC").First(&log).Error
	switch {
	case err == nil:
		return &log, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("latest feeding: %w", err)
	}
}

// LatestByCats returns the most recent feeding per cat. Cats never fed are absent.
func (r *FeedingRepository) LatestByCats(ctx context.Context, catIDs []uint) (map[uint]model.FeedingLog, error) {
	latest := make(map[uint]model.FeedingLog, len(catIDs))
	err := InChunks(Unique(catIDs), r.chunkSize, func(chunk []uint) error {
		var logs []model.FeedingLog
		if err := r.db.WithContext(ctx).
			Where("cat_id IN ?", chunk).
			Order("cat_id ASC, fed_at DESC").
			Find(&logs).Error; err != nil {
			return fmt.Errorf("latest feedings: %w", err)
		}
		for _, log := range logs {
			if _, ok := latest[log.CatID]; !ok {
				latest[log.CatID] = log
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// FedAtOrAfter maps each cat to its latest feeding among those at or after
// the cat's Since. A cat listed with several instants is checked against each.
func (r *FeedingRepository) FedAtOrAfter(ctx context.Context, pairs []CatSince) (map[uint]time.Time, error) {
	return r.fedSince(ctx, pairs, ">=")
}

// FedAfter is FedAtOrAfter with a strict comparison.
func (r *FeedingRepository) FedAfter(ctx context.Context, pairs []CatSince) (map[uint]time.Time, error) {
	return r.fedSince(ctx, pairs, ">")
}

func (r *FeedingRepository) fedSince(ctx context.Context, pairs []CatSince, op string) (map[uint]time.Time, error) {
	fed := make(map[uint]time.Time)
	err := InChunks(Unique(pairs), r.chunkSize, func(chunk []CatSince) error {
		conds := make([]string, 0, len(chunk))
		args := make([]any, 0, 2*len(chunk))
		for _, p := range chunk {
			conds = append(conds, "(cat_id = ? AND fed_at "+op+" ?)")
			args = append(args, p.CatID, p.Since.UTC())
		}
		var logs []model.FeedingLog
		if err := r.db.WithContext(ctx).
			Select("cat_id", "fed_at").
			Where(strings.Join(conds, " OR "), args...).
			Find(&logs).Error; err != nil {
			return fmt.Errorf("feedings since: %w", err)
		}
		for _, log := range logs {
			if prev, ok := fed[log.CatID]; !ok || log.FedAt.After(prev) {
				fed[log.CatID] = log.FedAt
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fed, nil
}
