package model

import (
	"testing"
	"time"
)

func TestMetadataRoundTripKeepsVariant(t *testing.T) {
	expected := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	raw, err := EncodeMetadata(WarningMeta{CatID: 7, ExpectedTime: expected})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeMetadata(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	w, ok := got.(WarningMeta)
	if !ok {
		t.Fatalf("decoded %T, want WarningMeta", got)
	}
	if w.CatID != 7 || !w.ExpectedTime.Equal(expected) {
		t.Errorf("decoded %+v", w)
	}
	if w.DedupKey() != "warning:7:2024-01-01T12:00:00Z" {
		t.Errorf("dedup key = %q", w.DedupKey())
	}
}

func TestDecodeMetadataUnknownKind(t *testing.T) {
	if _, err := DecodeMetadata([]byte(`{"kind":"mystery","data":{}}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestWarningKeyIgnoresLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	utc := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if WarningKey(1, utc) != WarningKey(1, utc.In(loc)) {
		t.Error("same instant in different zones must share a key")
	}
}

func TestNewNotificationDerivesFields(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		meta     Metadata
		wantType NotificationType
		wantKey  string
	}{
		{ReminderMeta{ScheduledNotificationID: 3}, NotificationReminder, "reminder:3"},
		{FeedingMeta{CatID: 2, FeedingLogID: 9}, NotificationFeeding, "feeding:9"},
		{DuplicateMeta{CatID: 2, AttemptedAt: now}, NotificationWarning, "duplicate:2:2024-01-01T08:00:00Z"},
	}
	for _, tc := range cases {
		n, err := NewNotification(5, "t", "m", tc.meta, now)
		if err != nil {
			t.Fatalf("%s: %v", tc.meta.Kind(), err)
		}
		if n.Type != tc.wantType {
			t.Errorf("%s: type = %s, want %s", tc.meta.Kind(), n.Type, tc.wantType)
		}
		if n.DedupKey == nil || *n.DedupKey != tc.wantKey {
			t.Errorf("%s: dedup key = %v, want %s", tc.meta.Kind(), n.DedupKey, tc.wantKey)
		}
		if n.ID == "" || n.UserID != 5 {
			t.Errorf("%s: id=%q user=%d", tc.meta.Kind(), n.ID, n.UserID)
		}
	}
}
