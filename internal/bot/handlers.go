package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/wordbot/internal/upload"
	"github.com/example/wordbot/pkg/models"
)

// queriedWordsLimit bounds the /my_words listing
const queriedWordsLimit = 20

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}
	chatID := message.Chat.ID
	b.touch(ctx, chatID, message.From)

	if message.Document != nil {
		b.handleDocument(ctx, chatID, message.Document)
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}
	if !isEnglishWord(text) {
		b.reply(chatID, "Send me an English word to translate, or see /help.", nil)
		return
	}
	b.handleLookup(ctx, chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start":
		b.handleStart(ctx, chatID, message.From)
	case "word":
		b.handleWord(ctx, chatID)
	case "auto_start":
		b.handleAutoStart(ctx, chatID)
	case "auto_stop":
		b.handleAutoStop(ctx, chatID)
	case "interval":
		b.handleInterval(ctx, chatID, message.CommandArguments())
	case "stats":
		b.handleStats(ctx, chatID)
	case "wordlist":
		b.handleWordlistMenu(ctx, chatID)
	case "upload":
		b.reply(chatID, uploadHelpText(b.uploader.MaxBytes()), nil)
	case "my_wordlists":
		b.handleMyWordlists(chatID)
	case "my_words":
		b.handleMyWords(ctx, chatID)
	case "help":
		b.reply(chatID, helpText, nil)
	default:
		b.reply(chatID, "Unknown command. See /help.", nil)
	}
}

func (b *Bot) touch(ctx context.Context, chatID int64, from *tgbotapi.User) {
	var user tgbotapi.User
	if from != nil {
		user = *from
	}
	if err := b.users.Touch(ctx, chatID, user.UserName, user.FirstName, user.LastName); err != nil {
		b.logger.Warn("failed to record user activity", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// currentWordlist returns the chat's selected wordlist, nil when it no longer exists
func (b *Bot) currentWordlist(settings *models.UserSettings) *models.Wordlist {
	wl, err := b.wordlists.Get(settings.SelectedWordlist)
	if err != nil {
		return nil
	}
	return wl
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	settings, err := b.users.GetSettings(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to get settings", err)
		return
	}
	stats, err := b.history.Stats(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to get stats", err)
		return
	}

	name := "there"
	if from != nil {
		u := models.User{Username: from.UserName, FirstName: from.FirstName, LastName: from.LastName}
		if n := u.DisplayName(); n != "" {
			name = n
		}
	}
	b.reply(chatID, welcomeText(name, b.currentWordlist(settings), stats), nil)
}

func (b *Bot) handleWord(ctx context.Context, chatID int64) {
	settings, err := b.users.GetSettings(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to get settings", err)
		return
	}
	word := b.wordlists.Pick(settings.SelectedWordlist)
	if err := b.history.Append(ctx, chatID, word, false, ""); err != nil {
		b.logger.Warn("failed to record word", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	var markup interface{}
	if button, ok := translateButton(word); ok {
		markup = createKeyboard([][]MenuButton{{button}})
	}
	b.reply(chatID, "📝 "+word, markup)
}

func (b *Bot) handleLookup(ctx context.Context, chatID int64, word string) {
	text, err := b.translator.Resolve(ctx, word)
	if err != nil {
		b.logger.Warn("translation failed", zap.String("word", word), zap.Error(err))
		b.reply(chatID, fmt.Sprintf("📖 %s\n\n%s", word, userMessage(err)), nil)
		return
	}
	if err := b.history.Append(ctx, chatID, word, true, text); err != nil {
		b.logger.Warn("failed to record translation", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.reply(chatID, lookupText(word, text), nil)
}

// lookupText prefixes generated translations with the headword; dictionary entries already carry it
func lookupText(word, text string) string {
	if strings.HasPrefix(text, "📖") || strings.HasPrefix(text, "❌") {
		return text
	}
	return fmt.Sprintf("📖 %s\n\n%s", word, text)
}

func (b *Bot) handleAutoStart(ctx context.Context, chatID int64) {
	if b.delivery == nil {
		b.reply(chatID, "❌ Automatic delivery is not available.", nil)
		return
	}
	settings, err := b.delivery.StartDelivery(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to start delivery", err)
		return
	}
	b.logger.Info("auto-send enabled", zap.Int64("chat_id", chatID))
	b.reply(chatID, fmt.Sprintf("⏰ Auto-send enabled!\nI will send you a word every %d-%d seconds at random.",
		settings.IntervalMin, settings.IntervalMax), nil)
}

func (b *Bot) handleAutoStop(ctx context.Context, chatID int64) {
	if b.delivery == nil {
		b.reply(chatID, "❌ Automatic delivery is not available.", nil)
		return
	}
	if err := b.delivery.StopDelivery(ctx, chatID); err != nil {
		b.fail(chatID, "failed to stop delivery", err)
		return
	}
	b.logger.Info("auto-send disabled", zap.Int64("chat_id", chatID))
	b.reply(chatID, "⏹️ Auto-send disabled.", nil)
}

// parseInterval reads "<min> <max>" in seconds
func parseInterval(args string) (int, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two numbers, got %d", len(fields))
	}
	intervalMin, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid min: %v", err)
	}
	intervalMax, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid max: %v", err)
	}
	return intervalMin, intervalMax, nil
}

func (b *Bot) handleInterval(ctx context.Context, chatID int64, args string) {
	intervalMin, intervalMax, err := parseInterval(args)
	if err != nil {
		b.reply(chatID, "Usage: /interval <min> <max>\nExample: /interval 30 120", nil)
		return
	}
	if err := b.users.SetIntervals(ctx, chatID, intervalMin, intervalMax); err != nil {
		b.fail(chatID, "failed to set interval", err)
		return
	}

	// a running chain keeps its old range until it is rescheduled
	if b.delivery != nil && b.delivery.IsScheduled(chatID) {
		if _, err := b.delivery.StartDelivery(ctx, chatID); err != nil {
			b.fail(chatID, "failed to reschedule delivery", err)
			return
		}
	}
	b.reply(chatID, fmt.Sprintf("✅ Interval set to %d-%d seconds.", intervalMin, intervalMax), nil)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	stats, err := b.history.Stats(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to get stats", err)
		return
	}
	week, err := b.history.Count(ctx, chatID, 7)
	if err != nil {
		b.fail(chatID, "failed to count words", err)
		return
	}
	settings, err := b.users.GetSettings(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to get settings", err)
		return
	}
	b.reply(chatID, statsText(stats, week, settings.AutoSendEnabled), nil)
}

func (b *Bot) handleWordlistMenu(ctx context.Context, chatID int64) {
	settings, err := b.users.GetSettings(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to get settings", err)
		return
	}
	b.reply(chatID, wordlistMenuText(b.currentWordlist(settings)), wordlistKeyboard(b.wordlists.List(), settings.SelectedWordlist))
}

func (b *Bot) handleMyWordlists(chatID int64) {
	lists := b.wordlists.ListOwned(chatID)
	if len(lists) == 0 {
		b.reply(chatID, ownedListText(lists), nil)
		return
	}
	b.reply(chatID, ownedListText(lists), ownedKeyboard(lists))
}

func (b *Bot) handleMyWords(ctx context.Context, chatID int64) {
	words, err := b.history.DistinctQueriedWords(ctx, chatID, queriedWordsLimit)
	if err != nil {
		b.fail(chatID, "failed to list queried words", err)
		return
	}
	if len(words) == 0 {
		b.reply(chatID, queriedWordsText(nil, 0), nil)
		return
	}
	total, err := b.history.CountDistinctQueriedWords(ctx, chatID)
	if err != nil {
		b.fail(chatID, "failed to count queried words", err)
		return
	}
	b.reply(chatID, queriedWordsText(words, total), queriedWordsKeyboard(b.wordlists.PersonalWordlist(chatID)))
}

func (b *Bot) handleDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document) {
	if int64(doc.FileSize) > b.uploader.MaxBytes() {
		b.reply(chatID, userMessage(upload.ErrTooLarge), nil)
		return
	}

	progress, err := b.api.Send(tgbotapi.NewMessage(chatID, "📥 Processing file..."))
	if err != nil {
		b.logger.Warn("failed to send progress message", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	wl, err := b.importDocument(ctx, chatID, doc)
	if err != nil {
		b.logger.Warn("upload failed", zap.Int64("chat_id", chatID), zap.String("file", doc.FileName), zap.Error(err))
		b.edit(chatID, progress.MessageID, userMessage(err), nil)
		return
	}

	b.logger.Info("wordlist uploaded",
		zap.Int64("chat_id", chatID),
		zap.String("key", wl.Key),
		zap.Int("words", wl.WordCount),
	)
	markup := createKeyboard([][]MenuButton{{{Text: "📚 Use this wordlist", CallbackData: selectPrefix + wordlistToken(wl.Key)}}})
	b.edit(chatID, progress.MessageID,
		fmt.Sprintf("✅ Wordlist「%s」uploaded with %d words.\n\nOpen /wordlist to switch to it.", wl.DisplayName, wl.WordCount),
		&markup)
}

func (b *Bot) importDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document) (*models.Wordlist, error) {
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}
	raw, err := b.download(ctx, url)
	if err != nil {
		return nil, err
	}
	return b.uploader.Import(chatID, doc.FileName, raw)
}

func (b *Bot) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	limit := b.uploader.MaxBytes()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, upload.ErrTooLarge
	}
	return raw, nil
}

// fail logs err and tells the chat something went wrong
func (b *Bot) fail(chatID int64, msg string, err error) {
	b.logger.Error(msg, zap.Int64("chat_id", chatID), zap.Error(err))
	b.reply(chatID, userMessage(err), nil)
}
