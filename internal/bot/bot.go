package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/wordbot/pkg/models"
)

// maxCallbackData is Telegram's limit for inline button payloads
const maxCallbackData = 64

// UserStore is the user and settings persistence the bot needs
type UserStore interface {
	Touch(ctx context.Context, chatID int64, username, firstName, lastName string) error
	GetSettings(ctx context.Context, chatID int64) (*models.UserSettings, error)
	SetSelectedWordlist(ctx context.Context, chatID int64, key string) error
	SetIntervals(ctx context.Context, chatID int64, intervalMin, intervalMax int) error
}

// HistoryStore records and summarizes the words a user saw
type HistoryStore interface {
	Append(ctx context.Context, chatID int64, word string, translated bool, translation string) error
	Count(ctx context.Context, chatID int64, sinceDays int) (int, error)
	Stats(ctx context.Context, chatID int64) (*models.UserStats, error)
	DistinctQueriedWords(ctx context.Context, chatID int64, limit int) ([]string, error)
	CountDistinctQueriedWords(ctx context.Context, chatID int64) (int, error)
}

// Wordlists is the wordlist index
type Wordlists interface {
	Get(key string) (*models.Wordlist, error)
	List() []models.Wordlist
	ListOwned(ownerID int64) []models.Wordlist
	PersonalWordlist(ownerID int64) *models.Wordlist
	Pick(key string) string
	Scan() error
	Delete(key string, requesterID int64) error
	BuildPersonalWordlist(ownerID int64, words []string) (*models.Wordlist, error)
}

// Translator resolves a word to display text
type Translator interface {
	Resolve(ctx context.Context, word string) (string, error)
}

// Uploader turns uploaded files into wordlists
type Uploader interface {
	Import(ownerID int64, filename string, raw []byte) (*models.Wordlist, error)
	MaxBytes() int64
}

// Delivery controls a chat's scheduled word deliveries
type Delivery interface {
	StartDelivery(ctx context.Context, chatID int64) (*models.UserSettings, error)
	StopDelivery(ctx context.Context, chatID int64) error
	IsScheduled(chatID int64) bool
}

// api is the part of the Telegram client used for replies
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Deps are the services the bot dispatches to
type Deps struct {
	Users      UserStore
	History    HistoryStore
	Wordlists  Wordlists
	Translator Translator
	Uploader   Uploader
	Logger     *zap.Logger
}

// Bot represents the Telegram bot application
type Bot struct {
	client   *tgbotapi.BotAPI
	api      api
	http     *http.Client
	delivery Delivery

	users      UserStore
	history    HistoryStore
	wordlists  Wordlists
	translator Translator
	uploader   Uploader
	logger     *zap.Logger
}

// New creates a bot authorized with token
func New(token string, deps Deps) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(client, deps)
	b.client = client
	b.logger.Info("authorized on account", zap.String("username", client.Self.UserName))
	return b, nil
}

func newBot(a api, deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:        a,
		http:       &http.Client{Timeout: 60 * time.Second},
		users:      deps.Users,
		history:    deps.History,
		wordlists:  deps.Wordlists,
		translator: deps.Translator,
		uploader:   deps.Uploader,
		logger:     logger,
	}
}

// AttachScheduler connects the delivery controls used by the auto-send commands
func (b *Bot) AttachScheduler(d Delivery) {
	b.delivery = d
}

// Run receives updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("bot has no Telegram client")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Notify sends a message with an optional inline action button
func (b *Bot) Notify(ctx context.Context, chatID int64, text string, action *models.Action) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup, ok := actionKeyboard(action); ok {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

// reply sends text to a chat and logs failures
func (b *Bot) reply(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// edit replaces the text and keyboard of a message the bot sent
func (b *Bot) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	cfg.ReplyMarkup = markup
	if _, err := b.api.Send(cfg); err != nil {
		b.logger.Warn("failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func actionKeyboard(action *models.Action) (tgbotapi.InlineKeyboardMarkup, bool) {
	if action == nil || action.Data == "" || len(action.Data) > maxCallbackData {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(action.Label, action.Data)),
	), true
}
