package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pet-feeding/internal/apperr"
	"pet-feeding/internal/model"
	"pet-feeding/internal/repository"
)

// DeliveredItem summarizes one scheduled notification turned into a notification.
type DeliveredItem struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"userId"`
	CatID     *uint                  `json:"catId,omitempty"`
	Type      model.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	DeliverAt time.Time              `json:"deliverAt"`
}

// DeliveryReport is the outcome of one delivery pass.
type DeliveryReport struct {
	Due        int             `json:"due"`
	Suppressed int             `json:"suppressed"`
	Delivered  int             `json:"delivered"`
	Items      []DeliveredItem `json:"notifications"`
}

// DeliveryService turns due scheduled notifications into notifications.
type DeliveryService struct {
	store *repository.Store
	log   logrus.FieldLogger
}

func NewDeliveryService(store *repository.Store, log logrus.FieldLogger) *DeliveryService {
	return &DeliveryService{store: store, log: log}
}

// DeliverDue delivers every scheduled notification due at now, at most once.
//
// A cat reminder whose cat was fed at or after its DeliverAt is suppressed:
// it is claimed like a delivered one, flagged Suppressed, and produces no
// notification. Rows are
// claimed with a conditional update inside the same transaction that inserts
// the notifications, so a concurrent pass acts only on rows it flipped itself.
func (s *DeliveryService) DeliverDue(ctx context.Context, now time.Time) (DeliveryReport, error) {
	var report DeliveryReport

	due, err := s.store.Scheduled.ListDue(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("load due scheduled notifications")
		return report, fmt.Errorf("load due notifications: %w", apperr.ErrInternal)
	}
	report.Due = len(due)
	if len(due) == 0 {
		s.log.Debug("no due scheduled notifications")
		return report, nil
	}

	var pairs []repository.CatSince
	for _, n := range due {
		if isCatReminder(n) {
			pairs = append(pairs, repository.CatSince{CatID: *n.CatID, Since: n.DeliverAt.UTC()})
		}
	}
	fed := map[uint]time.Time{}
	if len(pairs) > 0 {
		fed, err = s.store.Feedings.FedAtOrAfter(ctx, pairs)
		if err != nil {
			s.log.WithError(err).Error("load feedings for due reminders")
			return report, fmt.Errorf("load feedings: %w", apperr.ErrInternal)
		}
	}

	ids := make([]uint, 0, len(due))
	deliverable := make(map[uint]bool, len(due))
	for _, n := range due {
		ids = append(ids, n.ID)
		deliverable[n.ID] = !alreadyFed(n, fed)
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		claimed, err := tx.Scheduled.Claim(ctx, ids, now)
		if err != nil {
			return err
		}

		notifications := make([]model.Notification, 0, len(claimed))
		items := make([]DeliveredItem, 0, len(claimed))
		var suppressed []uint
		for _, n := range claimed {
			if !deliverable[n.ID] {
				suppressed = append(suppressed, n.ID)
				continue
			}
			meta := model.ReminderMeta{ScheduledNotificationID: n.ID, CatID: n.CatID, DeliverAt: n.DeliverAt}
			notification, err := model.NewNotification(n.UserID, n.Title, n.Message, meta, now)
			if err != nil {
				return err
			}
			notification.Type = n.Type
			notifications = append(notifications, notification)
			items = append(items, DeliveredItem{
				ID:        n.ID,
				UserID:    n.UserID,
				CatID:     n.CatID,
				Type:      n.Type,
				Title:     n.Title,
				Message:   n.Message,
				DeliverAt: n.DeliverAt,
			})
		}

		if err := tx.Scheduled.MarkSuppressed(ctx, suppressed); err != nil {
			return err
		}
		if _, err := tx.Notifications.CreateMany(ctx, notifications); err != nil {
			return err
		}
		report.Items = items
		report.Delivered = len(items)
		report.Suppressed = len(suppressed)
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("count", len(ids)).Error("deliver scheduled notifications")
		return DeliveryReport{Due: len(due)}, fmt.Errorf("deliver notifications: %w", apperr.ErrInternal)
	}

	s.log.WithFields(logrus.Fields{
		"due":        report.Due,
		"delivered":  report.Delivered,
		"suppressed": report.Suppressed,
	}).Info("scheduled notifications delivered")
	return report, nil
}

func isCatReminder(n model.ScheduledNotification) bool {
	return n.Type == model.NotificationReminder && n.CatID != nil && !n.DeliverAt.IsZero()
}

func alreadyFed(n model.ScheduledNotification, fed map[uint]time.Time) bool {
	if !isCatReminder(n) {
		return false
	}
	at, ok := fed[*n.CatID]
	return ok && !at.Before(n.DeliverAt)
}
