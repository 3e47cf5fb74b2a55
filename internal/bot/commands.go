package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pet-feeding/internal/apperr"
	"pet-feeding/internal/model"
	"pet-feeding/internal/service"
)

const (
	notificationsPageSize = 10
	pendingPageSize       = 10
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep track of who fed the cats and when.</b>\n\nCommands:\n"+
			"• /feed &lt;cat&gt; — record a feeding\n"+
			"• /next &lt;cat&gt; — when the next feeding is due\n"+
			"• /cats — your cats at a glance\n"+
			"• /notifications — latest notifications\n"+
			"• /help — hints",
		escape(displayName(user.Name)),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Hints</b>\n" +
		"• /feed — pick a cat from the list, or /feed Mia\n" +
		"• /next Mia — next feeding in your timezone\n" +
		"• /cats — every cat with its last and next feeding\n" +
		"• /notifications — reminders and warnings, marks them read\n\n" +
		"Household members are reminded when a feeding is due, and warned when one is missed."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCats(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	cats, err := b.feedings.CatsForUser(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Could not load your cats, try again later.")
	}
	if len(cats) == 0 {
		return b.sendText(msg.Chat.ID, "You have no cats yet. Ask a household member to add you.")
	}

	now := b.now()
	loc := user.Location(b.defaultLoc)
	var sb strings.Builder
	sb.WriteString("🐱 <b>Your cats</b>\n\n")
	for _, c := range cats {
		info, err := b.feedings.NextFeeding(ctx, c.ID, user.ID, now)
		if err != nil {
			b.log.WithError(err).WithField("cat_id", c.ID).Warn("next feeding for cat list")
		}
		sb.WriteString(formatCat(c, info, now, loc))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, sb.String(), catKeyboard(cats, cbNextPrefix))
}

func (b *Bot) handleFeed(ctx context.Context, msg *tgbotapi.Message, arg string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	cats, err := b.feedings.CatsForUser(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Could not load your cats, try again later.")
	}
	if len(cats) == 0 {
		return b.sendText(msg.Chat.ID, "You have no cats yet. Ask a household member to add you.")
	}
	if arg == "" {
		return b.sendWithReplyMarkup(msg.Chat.ID, "🍽 Who did you feed?", catKeyboard(cats, cbFeedPrefix))
	}

	cat, ok := findCat(cats, arg)
	if !ok {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No cat called <b>%s</b>. See /cats.", escape(arg)))
	}

	now := b.now()
	log, err := b.feedings.Register(ctx, service.FeedingInput{CatID: cat.ID, UserID: user.ID}, now)
	switch {
	case errors.Is(err, apperr.ErrDuplicateFeeding):
		return b.sendText(msg.Chat.ID, fmt.Sprintf("⚠️ <b>%s</b> was fed moments ago, so I did not record it again.", escape(cat.Name)))
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, apperr.ErrNotFound):
		return b.sendText(msg.Chat.ID, "That cat is not in your household.")
	case err != nil:
		return b.sendText(msg.Chat.ID, "Could not record the feeding, try again later.")
	}

	loc := user.Location(b.defaultLoc)
	text := fmt.Sprintf("✅ Fed <b>%s</b> at %s.", escape(cat.Name), log.FedAt.In(loc).Format("15:04"))
	info, err := b.feedings.NextFeeding(ctx, cat.ID, user.ID, now)
	switch {
	case err != nil:
		b.log.WithError(err).WithField("cat_id", cat.ID).Warn("next feeding after registration")
	case info.NextFeeding != nil:
		text += fmt.Sprintf("\n⏰ Next feeding around %s.", formatInstant(*info.NextFeeding, now, loc))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleNext(ctx context.Context, msg *tgbotapi.Message, arg string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	cats, err := b.feedings.CatsForUser(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Could not load your cats, try again later.")
	}
	if arg == "" {
		if len(cats) == 0 {
			return b.sendText(msg.Chat.ID, "You have no cats yet.")
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, "Which cat?", catKeyboard(cats, cbNextPrefix))
	}
	cat, ok := findCat(cats, arg)
	if !ok {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No cat called <b>%s</b>. See /cats.", escape(arg)))
	}

	now := b.now()
	info, err := b.feedings.NextFeeding(ctx, cat.ID, user.ID, now)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Could not compute the next feeding, try again later.")
	}
	return b.sendText(msg.Chat.ID, formatNext(cat, info, now, user.Location(b.defaultLoc)))
}

func (b *Bot) handleNotifications(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	items, err := b.store.Notifications.ListByUser(ctx, user.ID, notificationsPageSize)
	if err != nil {
		b.log.WithError(err).WithField("user_id", user.ID).Error("list notifications")
		return b.sendText(msg.Chat.ID, "Could not load notifications, try again later.")
	}
	pending, err := b.store.Scheduled.ListPendingForUser(ctx, user.ID, pendingPageSize)
	if err != nil {
		b.log.WithError(err).WithField("user_id", user.ID).Warn("list pending reminders")
	}
	if len(items) == 0 && len(pending) == 0 {
		return b.sendText(msg.Chat.ID, "🔔 Nothing here yet.")
	}

	loc := user.Location(b.defaultLoc)
	var sb strings.Builder
	if len(items) > 0 {
		sb.WriteString("🔔 <b>Latest notifications</b>\n\n")
		for _, n := range items {
			sb.WriteString(formatNotificationLine(n, loc))
		}
	}
	if len(pending) > 0 {
		sb.WriteString(fmt.Sprintf("%s <b>Upcoming reminders</b>\n", iconReminder))
		for _, p := range pending {
			sb.WriteString(fmt.Sprintf("• %s · %s\n", p.DeliverAt.In(loc).Format("Jan 2 15:04"), escape(p.Title)))
		}
	}
	if err := b.store.Notifications.MarkAllRead(ctx, user.ID); err != nil {
		b.log.WithError(err).WithField("user_id", user.ID).Warn("mark notifications read")
	}
	return b.sendText(msg.Chat.ID, sb.String())
}

// findCat matches "#<id>", a bare id, or a case-insensitive name.
func findCat(cats []model.Cat, arg string) (model.Cat, bool) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.ParseUint(strings.TrimPrefix(arg, "#"), 10, 64); err == nil {
		for _, c := range cats {
			if uint64(c.ID) == id {
				return c, true
			}
		}
		if strings.HasPrefix(arg, "#") {
			return model.Cat{}, false
		}
	}
	for _, c := range cats {
		if strings.EqualFold(strings.TrimSpace(c.Name), arg) {
			return c, true
		}
	}
	return model.Cat{}, false
}
