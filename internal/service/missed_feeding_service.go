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

// DefaultMissedGrace is how long after the expected feeding time a warning waits.
const DefaultMissedGrace = 20 * time.Minute

// MissedReport is the outcome of one missed-feeding scan.
type MissedReport struct {
	Checked  int   `json:"checked"`
	Overdue  int   `json:"overdue"`
	Warned   int   `json:"warned"`
	Inserted int64 `json:"inserted"`
}

// MissedFeedingService warns household members about cats left unfed.
type MissedFeedingService struct {
	store *repository.Store
	log   logrus.FieldLogger
	grace time.Duration
}

func NewMissedFeedingService(store *repository.Store, log logrus.FieldLogger, grace time.Duration) *MissedFeedingService {
	if grace < 0 {
		grace = DefaultMissedGrace
	}
	return &MissedFeedingService{store: store, log: log, grace: grace}
}

type missedCandidate struct {
	cat      model.Cat
	last     model.FeedingLog
	expected time.Time
}

// Detect scans every cat with a feeding interval. A cat whose last feeding
// plus interval plus grace lies before now, and that has not been fed since
// the expected time, gets one warning per household member other than its
// last feeder. Warnings are keyed by (cat, expected time): an earlier warning
// for the same key suppresses a new one, and the insert ignores collisions
// with a concurrent scan. Cats that were never fed are not considered.
func (s *MissedFeedingService) Detect(ctx context.Context, now time.Time) (MissedReport, error) {
	var report MissedReport

	cats, err := s.store.Cats.ListWithInterval(ctx)
	if err != nil {
		return report, s.fail(err, "load cats with interval")
	}
	report.Checked = len(cats)
	if len(cats) == 0 {
		return report, nil
	}

	catIDs := make([]uint, 0, len(cats))
	for _, c := range cats {
		catIDs = append(catIDs, c.ID)
	}
	latest, err := s.store.Feedings.LatestByCats(ctx, catIDs)
	if err != nil {
		return report, s.fail(err, "load last feedings")
	}

	var candidates []missedCandidate
	for _, c := range cats {
		last, ok := latest[c.ID]
		if !ok {
			continue
		}
		expected := last.FedAt.Add(time.Duration(c.IntervalHours()) * time.Hour)
		if now.After(expected.Add(s.grace)) {
			candidates = append(candidates, missedCandidate{cat: c, last: last, expected: expected})
		}
	}
	if len(candidates) == 0 {
		return report, nil
	}

	pairs := make([]repository.CatSince, 0, len(candidates))
	for _, c := range candidates {
		pairs = append(pairs, repository.CatSince{CatID: c.cat.ID, Since: c.expected.UTC()})
	}
	fedAfter, err := s.store.Feedings.FedAfter(ctx, pairs)
	if err != nil {
		return report, s.fail(err, "load feedings after expected time")
	}

	overdue := candidates[:0]
	for _, c := range candidates {
		if _, fed := fedAfter[c.cat.ID]; !fed {
			overdue = append(overdue, c)
		}
	}
	report.Overdue = len(overdue)
	if len(overdue) == 0 {
		return report, nil
	}

	overdueIDs := make([]uint, 0, len(overdue))
	for _, c := range overdue {
		overdueIDs = append(overdueIDs, c.cat.ID)
	}
	warned, err := s.store.Notifications.WarningKeys(ctx, overdueIDs)
	if err != nil {
		return report, s.fail(err, "load existing warnings")
	}

	fresh := overdue[:0]
	householdIDs := make([]uint, 0, len(overdue))
	for _, c := range overdue {
		if _, seen := warned[model.WarningKey(c.cat.ID, c.expected)]; seen {
			continue
		}
		fresh = append(fresh, c)
		householdIDs = append(householdIDs, c.cat.HouseholdID)
	}
	if len(fresh) == 0 {
		return report, nil
	}

	members, err := s.store.Households.MembersOf(ctx, householdIDs)
	if err != nil {
		return report, s.fail(err, "load household members")
	}
	byHousehold := make(map[uint][]uint)
	for _, m := range members {
		byHousehold[m.HouseholdID] = append(byHousehold[m.HouseholdID], m.UserID)
	}

	var notifications []model.Notification
	for _, c := range fresh {
		meta := model.WarningMeta{CatID: c.cat.ID, ExpectedTime: c.expected.UTC()}
		title := "Missed feeding"
		message := fmt.Sprintf("%s was not fed at the expected time (%s).", c.cat.Name, c.expected.UTC().Format(time.RFC3339))
		recipients := 0
		for _, userID := range byHousehold[c.cat.HouseholdID] {
			if userID == c.last.FedBy {
				continue
			}
			n, err := model.NewNotification(userID, title, message, meta, now)
			if err != nil {
				return report, s.fail(err, "build warning")
			}
			notifications = append(notifications, n)
			recipients++
		}
		if recipients > 0 {
			report.Warned++
		}
		s.log.WithFields(logrus.Fields{
			"cat_id":        c.cat.ID,
			"expected_time": c.expected.UTC().Format(time.RFC3339),
			"recipients":    recipients,
		}).Debug("missed feeding detected")
	}

	inserted, err := s.store.Notifications.CreateMany(ctx, notifications)
	if err != nil {
		return report, s.fail(err, "insert warnings")
	}
	report.Inserted = inserted

	s.log.WithFields(logrus.Fields{
		"checked":  report.Checked,
		"overdue":  report.Overdue,
		"warned":   report.Warned,
		"inserted": report.Inserted,
	}).Info("missed feeding scan finished")
	return report, nil
}

func (s *MissedFeedingService) fail(err error, step string) error {
	s.log.WithError(err).Error(step)
	return fmt.Errorf("%s: %w", step, apperr.ErrInternal)
}
