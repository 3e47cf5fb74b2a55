package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const pushBatchSize = 100

// PushPending sends notifications that have not reached Telegram yet and
// marks them pushed. A failed send counts an attempt and leaves the
// notification for a later run, behind rows that have not failed.
func (b *Bot) PushPending(ctx context.Context) (int, error) {
	items, err := b.store.Notifications.ListUnpushed(ctx, pushBatchSize)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	userIDs := make([]uint, 0, len(items))
	for _, n := range items {
		userIDs = append(userIDs, n.UserID)
	}
	users, err := b.store.Users.ListByIDs(ctx, userIDs)
	if err != nil {
		return 0, fmt.Errorf("load recipients: %w", err)
	}
	chats := make(map[uint]int64, len(users))
	for _, u := range users {
		if u.TelegramID != nil {
			chats[u.ID] = *u.TelegramID
		}
	}

	pushed := make([]string, 0, len(items))
	var failed []string
	for _, n := range items {
		chatID, ok := chats[n.UserID]
		if !ok {
			continue
		}
		msg := tgbotapi.NewMessage(chatID, formatPush(n))
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{
				"notification_id": n.ID,
				"user_id":         n.UserID,
			}).Warn("push notification")
			failed = append(failed, n.ID)
			continue
		}
		pushed = append(pushed, n.ID)
	}

	if err := b.store.Notifications.MarkPushed(ctx, pushed, b.now()); err != nil {
		return 0, err
	}
	if err := b.store.Notifications.MarkPushFailed(ctx, failed); err != nil {
		return len(pushed), err
	}
	b.log.WithField("count", len(pushed)).Debug("notifications pushed")
	return len(pushed), nil
}
