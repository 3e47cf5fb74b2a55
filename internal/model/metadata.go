package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MetadataKind tags the variant stored in Notification.Metadata.
type MetadataKind string

const (
	KindReminder  MetadataKind = "reminder"
	KindWarning   MetadataKind = "warning"
	KindFeeding   MetadataKind = "feeding"
	KindDuplicate MetadataKind = "duplicate"
)

// Metadata is the typed payload attached to a notification. DedupKey
// identifies the logical event, so two notifications for the same user and
// key are the same notification.
type Metadata interface {
	Kind() MetadataKind
	DedupKey() string
	Cat() *uint
}

// ReminderMeta accompanies a notification produced from a ScheduledNotification.
type ReminderMeta struct {
	ScheduledNotificationID uint      `json:"scheduledNotificationId"`
	CatID                   *uint     `json:"catId,omitempty"`
	DeliverAt               time.Time `json:"deliverAt"`
}

func (m ReminderMeta) Kind() MetadataKind { return KindReminder }
func (m ReminderMeta) Cat() *uint         { return m.CatID }
func (m ReminderMeta) DedupKey() string {
	return fmt.Sprintf("reminder:%d", m.ScheduledNotificationID)
}

// WarningMeta marks a missed feeding for one expected instant.
type WarningMeta struct {
	CatID        uint      `json:"catId"`
	ExpectedTime time.Time `json:"expectedTime"`
}

func (m WarningMeta) Kind() MetadataKind { return KindWarning }
func (m WarningMeta) Cat() *uint         { return &m.CatID }
func (m WarningMeta) DedupKey() string   { return WarningKey(m.CatID, m.ExpectedTime) }

// WarningKey is the dedup key of a missed-feeding warning.
func WarningKey(catID uint, expected time.Time) string {
	return fmt.Sprintf("warning:%d:%s", catID, expected.UTC().Format(time.RFC3339))
}

// FeedingMeta accompanies "cat was fed" notifications.
type FeedingMeta struct {
	CatID        uint `json:"catId"`
	FeedingLogID uint `json:"feedingLogId"`
	FeederID     uint `json:"feederId"`
}

func (m FeedingMeta) Kind() MetadataKind { return KindFeeding }
func (m FeedingMeta) Cat() *uint         { return &m.CatID }
func (m FeedingMeta) DedupKey() string   { return fmt.Sprintf("feeding:%d", m.FeedingLogID) }

// DuplicateMeta accompanies the warning sent when a feeding is rejected as a duplicate.
type DuplicateMeta struct {
	CatID       uint      `json:"catId"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

func (m DuplicateMeta) Kind() MetadataKind { return KindDuplicate }
func (m DuplicateMeta) Cat() *uint         { return &m.CatID }
func (m DuplicateMeta) DedupKey() string {
	return fmt.Sprintf("duplicate:%d:%s", m.CatID, m.AttemptedAt.UTC().Format(time.RFC3339))
}

type metadataEnvelope struct {
	Kind MetadataKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeMetadata serializes m with its kind tag.
func EncodeMetadata(m Metadata) (datatypes.JSON, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s metadata: %w", m.Kind(), err)
	}
	raw, err := json.Marshal(metadataEnvelope{Kind: m.Kind(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s metadata: %w", m.Kind(), err)
	}
	return datatypes.JSON(raw), nil
}

// DecodeMetadata restores the variant written by EncodeMetadata.
func DecodeMetadata(raw datatypes.JSON) (Metadata, error) {
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	var (
		m   Metadata
		err error
	)
	switch env.Kind {
	case KindReminder:
		var v ReminderMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	case KindWarning:
		var v WarningMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	case KindFeeding:
		var v FeedingMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	case KindDuplicate:
		var v DuplicateMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	default:
		return nil, fmt.Errorf("decode metadata: unknown kind %q", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", env.Kind, err)
	}
	return m, nil
}

// NewNotification builds a notification for userID carrying meta. Type,
// cat reference and dedup key are derived from the metadata variant.
func NewNotification(userID uint, title, message string, meta Metadata, now time.Time) (Notification, error) {
	raw, err := EncodeMetadata(meta)
	if err != nil {
		return Notification{}, err
	}
	key := meta.DedupKey()
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		CatID:     meta.Cat(),
		Type:      notificationTypeFor(meta.Kind()),
		Title:     title,
		Message:   message,
		Metadata:  raw,
		DedupKey:  &key,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func notificationTypeFor(kind MetadataKind) NotificationType {
	switch kind {
	case KindReminder:
		return NotificationReminder
	case KindWarning, KindDuplicate:
		return NotificationWarning
	case KindFeeding:
		return NotificationFeeding
	default:
		return NotificationSystem
	}
}
