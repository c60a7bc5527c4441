package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/wordbot/internal/scheduler"
	"github.com/example/wordbot/internal/wordlist"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Message.Chat == nil {
		b.answer(query.ID, "")
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	b.touch(ctx, chatID, query.From)

	data := query.Data
	switch {
	case strings.HasPrefix(data, scheduler.TranslateDataPrefix):
		b.answer(query.ID, "")
		b.handleTranslateCallback(ctx, chatID, messageID, strings.TrimPrefix(data, scheduler.TranslateDataPrefix))
	case strings.HasPrefix(data, selectPrefix):
		b.handleSelectCallback(ctx, query.ID, chatID, messageID, strings.TrimPrefix(data, selectPrefix))
	case strings.HasPrefix(data, deletePrefix):
		b.handleDeleteCallback(ctx, query.ID, chatID, messageID, strings.TrimPrefix(data, deletePrefix))
	case data == refreshData:
		b.handleRefreshCallback(ctx, query.ID, chatID, messageID)
	case data == buildListData:
		b.handleBuildCallback(ctx, query.ID, chatID, messageID)
	default:
		b.logger.Warn("unknown callback", zap.String("data", data))
		b.answer(query.ID, "")
	}
}

// answer acknowledges a callback, optionally with a toast
func (b *Bot) answer(queryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) handleTranslateCallback(ctx context.Context, chatID int64, messageID int, word string) {
	text, err := b.translator.Resolve(ctx, word)
	if err != nil {
		b.logger.Warn("translation failed", zap.String("word", word), zap.Error(err))
		b.edit(chatID, messageID, fmt.Sprintf("📖 %s\n\n%s", word, userMessage(err)), nil)
		return
	}
	if err := b.history.Append(ctx, chatID, word, true, text); err != nil {
		b.logger.Warn("failed to record translation", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.edit(chatID, messageID, lookupText(word, text), nil)
}

func (b *Bot) handleSelectCallback(ctx context.Context, queryID string, chatID int64, messageID int, token string) {
	wl, ok := findByToken(b.wordlists.List(), token)
	if !ok {
		b.answer(queryID, userMessage(wordlist.ErrNotFound))
		return
	}
	if err := b.users.SetSelectedWordlist(ctx, chatID, wl.Key); err != nil {
		b.logger.Error("failed to select wordlist", zap.Int64("chat_id", chatID), zap.Error(err))
		b.answer(queryID, userMessage(err))
		return
	}
	b.logger.Info("wordlist selected", zap.Int64("chat_id", chatID), zap.String("key", wl.Key))
	b.answer(queryID, "✅ "+wl.DisplayName)
	b.edit(chatID, messageID, fmt.Sprintf("✅ Switched to「%s」, %d words.", wl.DisplayName, wl.WordCount), nil)
}

func (b *Bot) handleDeleteCallback(ctx context.Context, queryID string, chatID int64, messageID int, token string) {
	wl, ok := findByToken(b.wordlists.ListOwned(chatID), token)
	if !ok {
		if _, foreign := findByToken(b.wordlists.List(), token); foreign {
			b.answer(queryID, userMessage(wordlist.ErrForbidden))
			return
		}
		b.answer(queryID, userMessage(wordlist.ErrNotFound))
		return
	}
	if err := b.wordlists.Delete(wl.Key, chatID); err != nil {
		b.logger.Warn("failed to delete wordlist", zap.Int64("chat_id", chatID), zap.String("key", wl.Key), zap.Error(err))
		b.answer(queryID, userMessage(err))
		return
	}
	b.logger.Info("wordlist deleted", zap.Int64("chat_id", chatID), zap.String("key", wl.Key))
	b.answer(queryID, "🗑️ Deleted")

	remaining := b.wordlists.ListOwned(chatID)
	text := fmt.Sprintf("🗑️ Deleted「%s」.\n\n%s", wl.DisplayName, ownedListText(remaining))
	if len(remaining) == 0 {
		b.edit(chatID, messageID, text, nil)
		return
	}
	markup := ownedKeyboard(remaining)
	b.edit(chatID, messageID, text, &markup)
}

func (b *Bot) handleRefreshCallback(ctx context.Context, queryID string, chatID int64, messageID int) {
	if err := b.wordlists.Scan(); err != nil {
		b.logger.Error("failed to rescan wordlists", zap.Error(err))
		b.answer(queryID, userMessage(err))
		return
	}
	settings, err := b.users.GetSettings(ctx, chatID)
	if err != nil {
		b.logger.Error("failed to get settings", zap.Int64("chat_id", chatID), zap.Error(err))
		b.answer(queryID, userMessage(err))
		return
	}
	b.answer(queryID, "🔄 Refreshed")
	markup := wordlistKeyboard(b.wordlists.List(), settings.SelectedWordlist)
	b.edit(chatID, messageID, wordlistMenuText(b.currentWordlist(settings)), &markup)
}

func (b *Bot) handleBuildCallback(ctx context.Context, queryID string, chatID int64, messageID int) {
	// 0 means no limit
	words, err := b.history.DistinctQueriedWords(ctx, chatID, 0)
	if err != nil {
		b.logger.Error("failed to list queried words", zap.Int64("chat_id", chatID), zap.Error(err))
		b.answer(queryID, userMessage(err))
		return
	}
	wl, err := b.wordlists.BuildPersonalWordlist(chatID, words)
	if err != nil {
		if !errors.Is(err, wordlist.ErrEmptyWordlist) {
			b.logger.Error("failed to build personal wordlist", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		b.answer(queryID, userMessage(err))
		return
	}
	b.logger.Info("personal wordlist built", zap.Int64("chat_id", chatID), zap.Int("words", wl.WordCount))
	b.answer(queryID, "✅ Created")
	markup := queriedWordsKeyboard(wl)
	b.edit(chatID, messageID, fmt.Sprintf("✅ Wordlist「%s」created with %d words.", wl.DisplayName, wl.WordCount), &markup)
}
