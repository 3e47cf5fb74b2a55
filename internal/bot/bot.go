package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"pet-feeding/internal/model"
	"pet-feeding/internal/repository"
	"pet-feeding/internal/service"
)

const (
	cbFeedPrefix = "feed:"
	cbNextPrefix = "next:"
)

const (
	menuLabelCats          = "🐱 Cats"
	menuLabelFeed          = "🍽 Feed"
	menuLabelNotifications = "🔔 Notifications"
	menuLabelHelp          = "ℹ️ Help"
)

// botAPI is the part of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api        botAPI
	store      *repository.Store
	feedings   *service.FeedingService
	log        logrus.FieldLogger
	defaultLoc *time.Location
	now        func() time.Time
}

func New(token string, store *repository.Store, feedings *service.FeedingService, defaultLoc *time.Location, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.WithField("account", api.Self.UserName).Info("bot authorized")
	return newBot(api, store, feedings, defaultLoc, log), nil
}

func newBot(api botAPI, store *repository.Store, feedings *service.FeedingService, defaultLoc *time.Location, log logrus.FieldLogger) *Bot {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Bot{
		api:        api,
		store:      store,
		feedings:   feedings,
		log:        log,
		defaultLoc: defaultLoc,
		now:        time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.WithError(err).Error("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.WithError(err).Error("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.log.WithFields(logrus.Fields{
			"telegram_id": msg.From.ID,
			"command":     msg.Command(),
		}).Info("command received")
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Try /feed or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "cats":
		return b.handleCats(ctx, msg)
	case "feed":
		return b.handleFeed(ctx, msg, args)
	case "next":
		return b.handleNext(ctx, msg, args)
	case "notifications":
		return b.handleNotifications(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelCats):
		return true, b.handleCats(ctx, msg)
	case strings.ToLower(menuLabelFeed):
		return true, b.handleFeed(ctx, msg, "")
	case strings.ToLower(menuLabelNotifications):
		return true, b.handleNotifications(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.WithError(err).Warn("callback ack")
	}

	msg := &tgbotapi.Message{From: cb.From, Chat: cb.Message.Chat}
	switch {
	case strings.HasPrefix(cb.Data, cbFeedPrefix):
		return b.handleFeed(ctx, msg, "#"+strings.TrimPrefix(cb.Data, cbFeedPrefix))
	case strings.HasPrefix(cb.Data, cbNextPrefix):
		return b.handleNext(ctx, msg, "#"+strings.TrimPrefix(cb.Data, cbNextPrefix))
	default:
		return nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name == "" {
		name = from.UserName
	}
	return b.store.Users.UpsertFromTelegram(ctx, from.ID, name)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelFeed),
			tgbotapi.NewKeyboardButton(menuLabelCats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNotifications),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func catKeyboard(cats []model.Cat, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name, fmt.Sprintf("%s%d", prefix, c.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
