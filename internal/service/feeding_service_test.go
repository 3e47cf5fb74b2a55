package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pet-feeding/internal/apperr"
	"pet-feeding/internal/model"
	"pet-feeding/internal/repository"
	"pet-feeding/internal/schedule"
	"pet-feeding/internal/testutil"
)

type feedingFixture struct {
	svc   *FeedingService
	store *repository.Store
	users []model.User
	cat   model.Cat
}

func newFeedingFixture(t *testing.T) feedingFixture {
	t.Helper()
	store := testutil.TestStore(t)
	h, users := testutil.Household(t, store, "ana", "bia", "caio")
	cat := testutil.Cat(t, store, h.ID, "mia", 4)
	return feedingFixture{
		svc:   NewFeedingService(store, testutil.Logger(), schedule.DefaultDuplicateWindow, time.UTC),
		store: store,
		users: users,
		cat:   cat,
	}
}

func TestRegisterFeedingNotifiesAndSchedulesReminders(t *testing.T) {
	f := newFeedingFixture(t)
	ctx := context.Background()

	log, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[0].ID}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if log.ID == 0 || !log.FedAt.Equal(t0) || log.FedBy != f.users[0].ID {
		t.Fatalf("log = %+v", log)
	}

	if got := countNotifications(t, f.store, model.NotificationFeeding); got != 3 {
		t.Errorf("feeding notifications = %d, want 3", got)
	}

	var reminders []model.ScheduledNotification
	if err := f.store.DB().Order("user_id").Find(&reminders).Error; err != nil {
		t.Fatal(err)
	}
	if len(reminders) != 2 {
		t.Fatalf("reminders = %d, want 2", len(reminders))
	}
	for i, r := range reminders {
		if r.UserID != f.users[i+1].ID {
			t.Errorf("reminder %d user = %d, want %d", i, r.UserID, f.users[i+1].ID)
		}
		if !r.DeliverAt.Equal(t0.Add(4 * time.Hour)) {
			t.Errorf("reminder %d deliver at = %v", i, r.DeliverAt)
		}
		if r.Delivered || r.CatID == nil || *r.CatID != f.cat.ID {
			t.Errorf("reminder %d = %+v", i, r)
		}
	}
}

func TestRegisterFeedingRejectsDuplicate(t *testing.T) {
	f := newFeedingFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[0].ID}, t0); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[1].ID}, t0.Add(3*time.Minute))
	if !errors.Is(err, apperr.ErrDuplicateFeeding) {
		t.Fatalf("err = %v, want duplicate feeding", err)
	}

	var logs int64
	f.store.DB().Model(&model.FeedingLog{}).Count(&logs)
	if logs != 1 {
		t.Errorf("feeding logs = %d, want 1", logs)
	}

	var warning model.Notification
	if err := f.store.DB().Where("type = ?", model.NotificationWarning).First(&warning).Error; err != nil {
		t.Fatal(err)
	}
	if warning.UserID != f.users[1].ID {
		t.Errorf("warning went to %d, want the feeder %d", warning.UserID, f.users[1].ID)
	}
	meta, err := model.DecodeMetadata(warning.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := meta.(model.DuplicateMeta); !ok {
		t.Errorf("metadata = %#v", meta)
	}
}

func TestRegisterFeedingOutsideDuplicateWindow(t *testing.T) {
	f := newFeedingFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[0].ID}, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[1].ID}, t0.Add(5*time.Minute)); err != nil {
		t.Fatalf("feeding at the window edge: %v", err)
	}
}

func TestRegisterFeedingUsesPortionSize(t *testing.T) {
	f := newFeedingFixture(t)
	portion := 42.5
	f.cat.PortionSize = &portion
	if err := f.store.DB().Save(&f.cat).Error; err != nil {
		t.Fatal(err)
	}

	log, err := f.svc.Register(context.Background(), FeedingInput{CatID: f.cat.ID, UserID: f.users[0].ID, Unit: "g"}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if log.Amount == nil || *log.Amount != portion {
		t.Errorf("amount = %v, want %v", log.Amount, portion)
	}
}

func TestRegisterFeedingWithoutIntervalSchedulesNothing(t *testing.T) {
	f := newFeedingFixture(t)
	cat := testutil.Cat(t, f.store, f.cat.HouseholdID, "free", 0)

	if _, err := f.svc.Register(context.Background(), FeedingInput{CatID: cat.ID, UserID: f.users[0].ID}, t0); err != nil {
		t.Fatal(err)
	}
	var n int64
	f.store.DB().Model(&model.ScheduledNotification{}).Count(&n)
	if n != 0 {
		t.Errorf("scheduled = %d, want 0", n)
	}
}

func TestRegisterFeedingAuthorization(t *testing.T) {
	f := newFeedingFixture(t)
	_, outsiders := testutil.Household(t, f.store, "zed")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: outsiders[0].ID}, t0)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("outsider err = %v, want forbidden", err)
	}
	_, err = f.svc.Register(ctx, FeedingInput{CatID: 9999, UserID: f.users[0].ID}, t0)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown cat err = %v, want not found", err)
	}
	if _, err := f.svc.NextFeeding(ctx, f.cat.ID, outsiders[0].ID, t0); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("next feeding err = %v, want forbidden", err)
	}
}

func TestNextFeedingInfo(t *testing.T) {
	f := newFeedingFixture(t)
	ctx := context.Background()

	info, err := f.svc.NextFeeding(ctx, f.cat.ID, f.users[0].ID, t0)
	if err != nil {
		t.Fatal(err)
	}
	if info.LastFeeding != nil || info.HasSchedules {
		t.Errorf("never fed = %+v", info)
	}
	if info.NextFeeding == nil || !info.NextFeeding.Equal(t0.Add(4*time.Hour)) {
		t.Errorf("cold start next = %v, want now plus interval", info.NextFeeding)
	}

	testutil.Feed(t, f.store, f.cat, f.users[0], t0)
	info, err = f.svc.NextFeeding(ctx, f.cat.ID, f.users[0].ID, t0.Add(3*time.Hour+45*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if info.NextFeeding == nil || !info.NextFeeding.Equal(t0.Add(4*time.Hour)) {
		t.Fatalf("next = %v", info.NextFeeding)
	}
	if info.Overdue || info.Status != schedule.StatusDueSoon {
		t.Errorf("info = %+v, want due soon and not overdue", info)
	}
}

func TestNextFeedingFollowsFixedTimeSchedule(t *testing.T) {
	f := newFeedingFixture(t)
	ctx := context.Background()
	sched := model.Schedule{CatID: f.cat.ID, Type: model.ScheduleFixedTime, Times: "07:00,19:00", Enabled: true}
	if err := f.store.Schedules.Create(ctx, &sched); err != nil {
		t.Fatal(err)
	}

	info, err := f.svc.NextFeeding(ctx, f.cat.ID, f.users[0].ID, t0)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC)
	if !info.HasSchedules || info.NextFeeding == nil || !info.NextFeeding.Equal(want) {
		t.Errorf("info = %+v, want next at %v", info, want)
	}
}

func TestFeedingThenDeliveryEndToEnd(t *testing.T) {
	f := newFeedingFixture(t)
	ctx := context.Background()
	delivery := NewDeliveryService(f.store, testutil.Logger())

	if _, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[0].ID}, t0); err != nil {
		t.Fatal(err)
	}

	early, err := delivery.DeliverDue(ctx, t0.Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if early.Due != 0 {
		t.Errorf("early report = %+v", early)
	}

	report, err := delivery.DeliverDue(ctx, t0.Add(4*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if report.Delivered != 2 {
		t.Errorf("report = %+v, want both other members reminded", report)
	}
	if got := countNotifications(t, f.store, model.NotificationReminder); got != 2 {
		t.Errorf("reminders = %d, want 2", got)
	}
}

func TestRegisterFeedingInfersMealType(t *testing.T) {
	f := newFeedingFixture(t)
	tz := "America/Sao_Paulo"
	f.users[0].Timezone = tz
	if err := f.store.DB().Save(&f.users[0]).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 08:00 UTC is 05:00 in Sao Paulo.
	log, err := f.svc.Register(context.Background(), FeedingInput{CatID: f.cat.ID, UserID: f.users[0].ID}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if log.MealType != schedule.MealBreakfast {
		t.Errorf("meal type = %q, want breakfast", log.MealType)
	}
}

func TestRegisterFeedingAcceptsBackfill(t *testing.T) {
	f := newFeedingFixture(t)
	ctx := context.Background()
	now := t0.Add(6 * time.Hour)

	if _, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[0].ID, FedAt: t0.Add(4 * time.Hour)}, now); err != nil {
		t.Fatal(err)
	}
	// A missed entry four hours before the latest log is not a repeat of it.
	log, err := f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[1].ID, FedAt: t0}, now)
	if err != nil {
		t.Fatalf("backfill rejected: %v", err)
	}
	if !log.FedAt.Equal(t0) {
		t.Errorf("fed at = %v, want %v", log.FedAt, t0)
	}

	_, err = f.svc.Register(ctx, FeedingInput{CatID: f.cat.ID, UserID: f.users[1].ID, FedAt: t0.Add(4*time.Hour - 2*time.Minute)}, now)
	if !errors.Is(err, apperr.ErrDuplicateFeeding) {
		t.Errorf("backdated feeding next to the latest log: err = %v, want duplicate", err)
	}
}
