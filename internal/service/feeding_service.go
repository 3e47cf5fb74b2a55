package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pet-feeding/internal/apperr"
	"pet-feeding/internal/model"
	"pet-feeding/internal/repository"
	"pet-feeding/internal/schedule"
)

// FeedingInput describes a feeding being registered.
type FeedingInput struct {
	CatID    uint
	UserID   uint
	FedAt    time.Time // zero means now
	Amount   *float64
	Unit     string
	MealType string
	Notes    string
}

// NextFeedingInfo answers "when is this cat fed next".
type NextFeedingInfo struct {
	CatID        uint            `json:"catId"`
	NextFeeding  *time.Time      `json:"nextFeeding"`
	Overdue      bool            `json:"overdue"`
	Status       schedule.Status `json:"status,omitempty"`
	HasSchedules bool            `json:"hasSchedules"`
	LastFeeding  *time.Time      `json:"lastFeedingTime"`
}

// FeedingService registers feedings and answers schedule questions.
type FeedingService struct {
	store           *repository.Store
	log             logrus.FieldLogger
	duplicateWindow time.Duration
	defaultLoc      *time.Location
}

func NewFeedingService(store *repository.Store, log logrus.FieldLogger, duplicateWindow time.Duration, defaultLoc *time.Location) *FeedingService {
	if duplicateWindow < 0 {
		duplicateWindow = schedule.DefaultDuplicateWindow
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &FeedingService{store: store, log: log, duplicateWindow: duplicateWindow, defaultLoc: defaultLoc}
}

var errDuplicate = errors.New("duplicate")

// Register records a feeding. A feeding too close to the cat's previous one
// is rejected with apperr.ErrDuplicateFeeding and the feeder gets a warning
// instead. Otherwise the log is stored, household members are told, and when
// the cat has a feeding interval every other member gets a reminder scheduled
// for the next expected feeding.
func (s *FeedingService) Register(ctx context.Context, in FeedingInput, now time.Time) (*model.FeedingLog, error) {
	fedAt := in.FedAt
	if fedAt.IsZero() {
		fedAt = now
	}
	fedAt = fedAt.UTC()

	cat, err := s.authorizeCat(ctx, in.CatID, in.UserID)
	if err != nil {
		return nil, err
	}

	mealType := in.MealType
	if mealType == "" {
		mealType = schedule.MealTypeAt(fedAt, s.userLocation(ctx, in.UserID))
	}

	var log model.FeedingLog
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		last, err := tx.Feedings.Latest(ctx, cat.ID)
		if err != nil {
			return err
		}
		if last != nil && schedule.IsDuplicate(last.FedAt, fedAt, s.duplicateWindow) {
			return errDuplicate
		}

		log = model.FeedingLog{
			CatID:       cat.ID,
			HouseholdID: cat.HouseholdID,
			FedBy:       in.UserID,
			FedAt:       fedAt,
			Amount:      in.Amount,
			Unit:        in.Unit,
			MealType:    mealType,
			Notes:       in.Notes,
		}
		if log.Amount == nil && cat.PortionSize != nil {
			log.Amount = cat.PortionSize
		}
		if err := tx.Feedings.Create(ctx, &log); err != nil {
			return err
		}

		members, err := tx.Households.MembersOf(ctx, []uint{cat.HouseholdID})
		if err != nil {
			return err
		}

		meta := model.FeedingMeta{CatID: cat.ID, FeedingLogID: log.ID, FeederID: in.UserID}
		notifications := make([]model.Notification, 0, len(members))
		var reminders []model.ScheduledNotification
		interval := cat.IntervalHours()
		for _, m := range members {
			title, message := "Feeding registered", fmt.Sprintf("%s was fed.", cat.Name)
			if m.UserID == in.UserID {
				message = fmt.Sprintf("You fed %s.", cat.Name)
			}
			n, err := model.NewNotification(m.UserID, title, message, meta, now)
			if err != nil {
				return err
			}
			notifications = append(notifications, n)

			if interval > 0 && m.UserID != in.UserID {
				catID := cat.ID
				reminders = append(reminders, model.ScheduledNotification{
					UserID:    m.UserID,
					CatID:     &catID,
					Type:      model.NotificationReminder,
					Title:     "Feeding reminder",
					Message:   fmt.Sprintf("It is time to feed %s.", cat.Name),
					DeliverAt: fedAt.Add(time.Duration(interval) * time.Hour),
				})
			}
		}
		if _, err := tx.Notifications.CreateMany(ctx, notifications); err != nil {
			return err
		}
		return tx.Scheduled.CreateMany(ctx, reminders)
	})

	switch {
	case errors.Is(err, errDuplicate):
		s.warnDuplicate(ctx, cat, in.UserID, fedAt, now)
		return nil, fmt.Errorf("cat %d: %w", cat.ID, apperr.ErrDuplicateFeeding)
	case err != nil:
		s.log.WithError(err).WithField("cat_id", cat.ID).Error("register feeding")
		return nil, fmt.Errorf("register feeding: %w", apperr.ErrInternal)
	}

	s.log.WithFields(logrus.Fields{"cat_id": cat.ID, "feeding_log_id": log.ID, "fed_by": in.UserID}).Info("feeding registered")
	return &log, nil
}

func (s *FeedingService) warnDuplicate(ctx context.Context, cat *model.Cat, userID uint, fedAt, now time.Time) {
	meta := model.DuplicateMeta{CatID: cat.ID, AttemptedAt: fedAt}
	n, err := model.NewNotification(userID, "Duplicate feeding",
		fmt.Sprintf("%s was fed less than %s ago.", cat.Name, s.duplicateWindow), meta, now)
	if err == nil {
		_, err = s.store.Notifications.CreateMany(ctx, []model.Notification{n})
	}
	if err != nil {
		s.log.WithError(err).WithField("cat_id", cat.ID).Error("create duplicate feeding warning")
	}
}

// NextFeeding computes the next feeding for catID in the requesting user's timezone.
func (s *FeedingService) NextFeeding(ctx context.Context, catID, userID uint, now time.Time) (NextFeedingInfo, error) {
	info := NextFeedingInfo{CatID: catID}

	cat, err := s.authorizeCat(ctx, catID, userID)
	if err != nil {
		return info, err
	}

	loc := s.userLocation(ctx, userID)

	schedules, err := s.store.Schedules.ListEnabledByCat(ctx, cat.ID)
	if err != nil {
		s.log.WithError(err).WithField("cat_id", cat.ID).Error("load schedules")
		return info, fmt.Errorf("next feeding: %w", apperr.ErrInternal)
	}
	last, err := s.store.Feedings.Latest(ctx, cat.ID)
	if err != nil {
		s.log.WithError(err).WithField("cat_id", cat.ID).Error("load last feeding")
		return info, fmt.Errorf("next feeding: %w", apperr.ErrInternal)
	}

	info.HasSchedules = len(schedules) > 0
	if last != nil {
		fedAt := last.FedAt
		info.LastFeeding = &fedAt
	}
	if next, ok := schedule.NextFeeding(*cat, schedules, last, now, loc); ok {
		info.NextFeeding = &next
		info.Overdue = schedule.IsOverdue(next, now)
		info.Status = schedule.Classify(next, now)
	}
	return info, nil
}

func (s *FeedingService) userLocation(ctx context.Context, userID uint) *time.Location {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return s.defaultLoc
	}
	return user.Location(s.defaultLoc)
}

// CatsForUser lists the cats the user can feed.
func (s *FeedingService) CatsForUser(ctx context.Context, userID uint) ([]model.Cat, error) {
	cats, err := s.store.Cats.ListForUser(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("list cats")
		return nil, fmt.Errorf("list cats: %w", apperr.ErrInternal)
	}
	return cats, nil
}

func (s *FeedingService) authorizeCat(ctx context.Context, catID, userID uint) (*model.Cat, error) {
	cat, err := s.store.Cats.FindByID(ctx, catID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("cat %d: %w", catID, apperr.ErrNotFound)
	case err != nil:
		s.log.WithError(err).WithField("cat_id", catID).Error("load cat")
		return nil, fmt.Errorf("load cat: %w", apperr.ErrInternal)
	}

	ok, err := s.store.Households.IsMember(ctx, cat.HouseholdID, userID)
	if err != nil {
		s.log.WithError(err).WithField("cat_id", catID).Error("check membership")
		return nil, fmt.Errorf("check membership: %w", apperr.ErrInternal)
	}
	if !ok {
		return nil, fmt.Errorf("cat %d: %w", catID, apperr.ErrForbidden)
	}
	return cat, nil
}
