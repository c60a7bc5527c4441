package bot

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/wordbot/internal/database"
	"github.com/example/wordbot/internal/scheduler"
	"github.com/example/wordbot/internal/translation"
	"github.com/example/wordbot/internal/upload"
	"github.com/example/wordbot/internal/wordlist"
	"github.com/example/wordbot/pkg/models"
)

// Callback data prefixes
const (
	selectPrefix  = "wl:"
	deletePrefix  = "del:"
	refreshData   = "refresh"
	buildListData = "mkq"
	tokenLength   = 12
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

var englishWord = regexp.MustCompile(`^[A-Za-z][A-Za-z'\- ]{0,62}$`)

// isEnglishWord reports whether text looks like a word or short phrase to look up
func isEnglishWord(text string) bool {
	return englishWord.MatchString(strings.TrimSpace(text))
}

// wordlistToken is a short stable reference to a wordlist key
func wordlistToken(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:tokenLength]
}

// findByToken resolves a token back to its wordlist
func findByToken(lists []models.Wordlist, token string) (*models.Wordlist, bool) {
	for i := range lists {
		if wordlistToken(lists[i].Key) == token {
			return &lists[i], true
		}
	}
	return nil, false
}

func translateButton(word string) (MenuButton, bool) {
	data := scheduler.TranslateDataPrefix + word
	if len(data) > maxCallbackData {
		return MenuButton{}, false
	}
	return MenuButton{Text: "🔤 Translate", CallbackData: data}, true
}

// wordlistKeyboard lists every wordlist sorted by name with the current one marked
func wordlistKeyboard(lists []models.Wordlist, currentKey string) tgbotapi.InlineKeyboardMarkup {
	sorted := append([]models.Wordlist(nil), lists...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayName < sorted[j].DisplayName
	})

	var rows [][]MenuButton
	for _, wl := range sorted {
		mark := "📚"
		if wl.Key == currentKey {
			mark = "✅"
		}
		rows = append(rows, []MenuButton{{
			Text:         fmt.Sprintf("%s %s (%d)", mark, wl.DisplayName, wl.WordCount),
			CallbackData: selectPrefix + wordlistToken(wl.Key),
		}})
	}
	rows = append(rows, []MenuButton{{Text: "🔄 Refresh", CallbackData: refreshData}})
	return createKeyboard(rows)
}

func ownedKeyboard(lists []models.Wordlist) tgbotapi.InlineKeyboardMarkup {
	var rows [][]MenuButton
	for _, wl := range lists {
		rows = append(rows, []MenuButton{{
			Text:         fmt.Sprintf("🗑️ Delete「%s」", wl.DisplayName),
			CallbackData: deletePrefix + wordlistToken(wl.Key),
		}})
	}
	return createKeyboard(rows)
}

func wordlistMenuText(current *models.Wordlist) string {
	name := "none"
	if current != nil {
		name = fmt.Sprintf("%s (%d words)", current.DisplayName, current.WordCount)
	}
	return fmt.Sprintf("📚 Wordlists\n\nCurrent: %s\n\nTap a wordlist to switch to it.", name)
}

func ownedListText(lists []models.Wordlist) string {
	if len(lists) == 0 {
		return "📂 You have not uploaded any wordlists yet.\n\nUse /upload to see how."
	}
	var sb strings.Builder
	sb.WriteString("📂 Your wordlists:\n")
	for i, wl := range lists {
		fmt.Fprintf(&sb, "\n%d. %s (%d words)", i+1, wl.DisplayName, wl.WordCount)
	}
	return sb.String()
}

func statsText(stats *models.UserStats, week int, autoSend bool) string {
	status := "🔴 off"
	if autoSend {
		status = "🟢 on"
	}
	return fmt.Sprintf("📊 Your statistics\n\n"+
		"📚 Words received: %d\n"+
		"📅 Today: %d\n"+
		"🗓️ Last 7 days: %d\n"+
		"🔤 Translated: %d\n\n"+
		"⏰ Auto-send: %s",
		stats.TotalWords, stats.TodayWords, week, stats.TranslatedWords, status)
}

func welcomeText(name string, current *models.Wordlist, stats *models.UserStats) string {
	list := "none"
	if current != nil {
		list = fmt.Sprintf("%s (%d words)", current.DisplayName, current.WordCount)
	}
	return fmt.Sprintf("👋 Hello, %s!\n\n"+
		"I send you English words to learn at random intervals.\n\n"+
		"📚 Current wordlist: %s\n"+
		"📊 Words received: %d, today: %d, translated: %d\n\n"+
		"Send me any English word to translate it, or see /help for commands.",
		name, list, stats.TotalWords, stats.TodayWords, stats.TranslatedWords)
}

const queriedPreviewLimit = 15

func queriedWordsText(words []string, total int) string {
	if len(words) == 0 {
		return "📝 You have not translated any words yet.\n\nSend me an English word or tap 🔤 Translate under a delivered word."
	}
	var sb strings.Builder
	sb.WriteString("📝 Words you translated recently:\n")
	shown := words
	if len(shown) > queriedPreviewLimit {
		shown = shown[:queriedPreviewLimit]
	}
	for i, w := range shown {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, w)
	}
	if rest := len(words) - len(shown); rest > 0 {
		fmt.Fprintf(&sb, "\n... %d more", rest)
	}
	fmt.Fprintf(&sb, "\n\nTotal distinct words: %d", total)
	return sb.String()
}

func queriedWordsKeyboard(personal *models.Wordlist) tgbotapi.InlineKeyboardMarkup {
	if personal == nil {
		return createKeyboard([][]MenuButton{{{Text: "📝 Create my wordlist", CallbackData: buildListData}}})
	}
	return createKeyboard([][]MenuButton{
		{{Text: fmt.Sprintf("📚 Switch to my wordlist (%d words)", personal.WordCount), CallbackData: selectPrefix + wordlistToken(personal.Key)}},
		{{Text: "🔄 Rebuild my wordlist", CallbackData: buildListData}},
	})
}

func uploadHelpText(maxBytes int64) string {
	return fmt.Sprintf("📤 Upload a wordlist\n\n"+
		"Send a .txt file with one word per line, or an .xlsx sheet with words in its cells.\n\n"+
		"Example:\n"+
		"apple\nbanana\ncherry\n\n"+
		"Tips:\n"+
		"• The file name becomes the wordlist name, e.g. travel_words.txt → Travel Words\n"+
		"• UTF-8 and GBK text files are supported\n"+
		"• Maximum size: %dMB", maxBytes>>20)
}

const helpText = "🤖 Commands\n\n" +
	"/start - welcome and summary\n" +
	"/word - get a random word now\n" +
	"/auto_start - start sending words automatically\n" +
	"/auto_stop - stop automatic words\n" +
	"/interval <min> <max> - set the random interval in seconds\n" +
	"/stats - your learning statistics\n" +
	"/wordlist - choose a wordlist\n" +
	"/upload - how to upload your own wordlist\n" +
	"/my_wordlists - manage uploaded wordlists\n" +
	"/my_words - words you translated\n" +
	"/help - this message\n\n" +
	"Send any English word to translate it."

// userMessage renders a service error for the chat
func userMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		return "❌ The file is too large."
	case errors.Is(err, upload.ErrUnsupportedFormat):
		return "❌ Only .txt and .xlsx files are supported."
	case errors.Is(err, upload.ErrUnsupportedEncoding):
		return "❌ Could not read the file. Please save it as UTF-8 text."
	case errors.Is(err, wordlist.ErrEmptyWordlist):
		return "❌ No words were found in the file."
	case errors.Is(err, wordlist.ErrForbidden):
		return "❌ You can only delete your own wordlists."
	case errors.Is(err, wordlist.ErrNotFound):
		return "❌ That wordlist no longer exists."
	case errors.Is(err, translation.ErrTranslationFailed):
		return "❌ Translation failed"
	case errors.Is(err, database.ErrInvalidInterval):
		return "❌ Invalid interval. Use /interval <min> <max> with 1 ≤ min ≤ max seconds."
	default:
		return "❌ Something went wrong, please try again later."
	}
}
