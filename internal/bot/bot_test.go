package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/wordbot/internal/database"
	"github.com/example/wordbot/internal/translation"
	"github.com/example/wordbot/internal/upload"
	"github.com/example/wordbot/internal/wordlist"
	"github.com/example/wordbot/pkg/models"
)

const testChat int64 = 42

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	answers []string
	nextID  int
	fileURL string
}

var _ api = (*fakeAPI)(nil)

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answers = append(f.answers, cb.Text)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last(t *testing.T) string {
	t.Helper()
	texts := f.texts()
	if len(texts) == 0 {
		t.Fatal("nothing was sent")
	}
	return texts[len(texts)-1]
}

func (f *fakeAPI) lastAnswer(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		t.Fatal("callback was not answered")
	}
	return f.answers[len(f.answers)-1]
}

type fakeTranslator struct {
	result string
	err    error
}

func (f *fakeTranslator) Resolve(ctx context.Context, word string) (string, error) {
	return f.result, f.err
}

type fakeDelivery struct {
	mu        sync.Mutex
	users     UserStore
	scheduled map[int64]bool
	starts    int
}

var _ Delivery = (*fakeDelivery)(nil)

func (f *fakeDelivery) StartDelivery(ctx context.Context, chatID int64) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.scheduled[chatID] = true
	return f.users.GetSettings(ctx, chatID)
}

func (f *fakeDelivery) StopDelivery(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, chatID)
	return nil
}

func (f *fakeDelivery) IsScheduled(chatID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduled[chatID]
}

type testEnv struct {
	bot        *Bot
	api        *fakeAPI
	users      *database.UserRepository
	history    *database.HistoryRepository
	store      *wordlist.Store
	translator *fakeTranslator
	delivery   *fakeDelivery
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Connect("sqlite3", filepath.Join(dir, "bot.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	systemDir := filepath.Join(dir, "wordlists")
	if err := os.MkdirAll(systemDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range map[string]string{
		"4000_Essential_English_Words_Book_2nd_Edition.3.txt": "alpha, beta, gamma",
		"4000_Essential_English_Words_Book_2nd_Edition.1.txt": "one, two",
	} {
		if err := os.WriteFile(filepath.Join(systemDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write wordlist: %v", err)
		}
	}
	store := wordlist.NewStore(systemDir, filepath.Join(systemDir, "user_uploads"), "3", nil)
	if err := store.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	env := &testEnv{
		api:        &fakeAPI{},
		users:      database.NewUserRepository(db),
		history:    database.NewHistoryRepository(db),
		store:      store,
		translator: &fakeTranslator{result: "你好"},
	}
	env.delivery = &fakeDelivery{users: env.users, scheduled: map[int64]bool{}}
	env.bot = newBot(env.api, Deps{
		Users:      env.users,
		History:    env.history,
		Wordlists:  store,
		Translator: env.translator,
		Uploader:   upload.NewImporter(store, 1024, nil),
	})
	env.bot.AttachScheduler(env.delivery)
	return env
}

func (e *testEnv) send(text string) {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testChat, UserName: "tester", FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.Index(text, " "); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	e.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (e *testEnv) press(data string) {
	query := &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: testChat, UserName: "tester"},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: testChat}},
		Data:    data,
	}
	e.bot.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: query})
}

func TestWordlistToken(t *testing.T) {
	token := wordlistToken("user_42_20240501_123000_travel")
	if len(token) != tokenLength {
		t.Fatalf("token length = %d, want %d", len(token), tokenLength)
	}
	if token != wordlistToken("user_42_20240501_123000_travel") {
		t.Fatal("token is not stable")
	}
	if len(deletePrefix+token) > maxCallbackData {
		t.Fatal("callback data exceeds Telegram limit")
	}

	lists := []models.Wordlist{{Key: "1"}, {Key: "user_42_20240501_123000_travel"}}
	wl, ok := findByToken(lists, token)
	if !ok || wl.Key != "user_42_20240501_123000_travel" {
		t.Fatalf("findByToken = %v, %v", wl, ok)
	}
	if _, ok := findByToken(lists, "missing"); ok {
		t.Fatal("unknown token resolved")
	}
}

func TestIsEnglishWord(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"hello", true},
		{"  Hello ", true},
		{"ice cream", true},
		{"don't", true},
		{"well-known", true},
		{"你好", false},
		{"123", false},
		{"", false},
		{"hello!", false},
		{strings.Repeat("a", 80), false},
	}
	for _, tt := range tests {
		if got := isEnglishWord(tt.text); got != tt.want {
			t.Errorf("isEnglishWord(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		args    string
		min     int
		max     int
		wantErr bool
	}{
		{"30 120", 30, 120, false},
		{"  5   5 ", 5, 5, false},
		{"30", 0, 0, true},
		{"a b", 0, 0, true},
		{"1 2 3", 0, 0, true},
	}
	for _, tt := range tests {
		gotMin, gotMax, err := parseInterval(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseInterval(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if gotMin != tt.min || gotMax != tt.max {
			t.Errorf("parseInterval(%q) = %d, %d, want %d, %d", tt.args, gotMin, gotMax, tt.min, tt.max)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrap: %w", upload.ErrTooLarge), "too large"},
		{upload.ErrUnsupportedFormat, ".txt and .xlsx"},
		{wordlist.ErrForbidden, "your own"},
		{fmt.Errorf("%w: timeout", translation.ErrTranslationFailed), "Translation failed"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("userMessage(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

func TestWordlistKeyboardMarksCurrent(t *testing.T) {
	lists := []models.Wordlist{
		{Key: "3", DisplayName: "Book 3", WordCount: 3},
		{Key: "1", DisplayName: "Book 1", WordCount: 2},
	}
	markup := wordlistKeyboard(lists, "3")
	rows := markup.InlineKeyboard
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0].Text != "📚 Book 1 (2)" {
		t.Errorf("first row = %q", rows[0][0].Text)
	}
	if rows[1][0].Text != "✅ Book 3 (3)" {
		t.Errorf("second row = %q", rows[1][0].Text)
	}
	if data := *rows[2][0].CallbackData; data != refreshData {
		t.Errorf("last row data = %q, want %q", data, refreshData)
	}
}

func TestQueriedWordsText(t *testing.T) {
	var words []string
	for i := 0; i < 20; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := queriedWordsText(words, 31)
	if !strings.Contains(text, "15. w14") || strings.Contains(text, "w15") {
		t.Errorf("preview not truncated at %d:\n%s", queriedPreviewLimit, text)
	}
	if !strings.Contains(text, "... 5 more") || !strings.Contains(text, "Total distinct words: 31") {
		t.Errorf("missing summary lines:\n%s", text)
	}
}

func TestNotifyOmitsOversizedAction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.bot.Notify(ctx, testChat, "hi", &models.Action{Label: "x", Data: strings.Repeat("a", 65)}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := env.bot.Notify(ctx, testChat, "hi", &models.Action{Label: "x", Data: "tr:hi"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	first := env.api.sent[0].(tgbotapi.MessageConfig)
	if first.ReplyMarkup != nil {
		t.Error("oversized action should be dropped")
	}
	second := env.api.sent[1].(tgbotapi.MessageConfig)
	if _, ok := second.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Error("action button missing")
	}
}

func TestWordCommand(t *testing.T) {
	env := newTestEnv(t)
	env.send("/word")

	text := env.api.last(t)
	word := strings.TrimPrefix(text, "📝 ")
	if word != "alpha" && word != "beta" && word != "gamma" {
		t.Fatalf("word %q not from the selected wordlist", text)
	}
	msg := env.api.sent[0].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatal("translate button missing")
	}
	if data := *markup.InlineKeyboard[0][0].CallbackData; data != "tr:"+word {
		t.Errorf("callback data = %q", data)
	}

	total, err := env.history.Count(context.Background(), testChat, 0)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Errorf("history = %d, want 1", total)
	}
}

func TestLookupRecordsTranslation(t *testing.T) {
	env := newTestEnv(t)
	env.send("hello")

	if got := env.api.last(t); got != "📖 hello\n\n你好" {
		t.Errorf("reply = %q", got)
	}
	stats, err := env.history.Stats(context.Background(), testChat)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TranslatedWords != 1 {
		t.Errorf("translated = %d, want 1", stats.TranslatedWords)
	}
}

func TestLookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.translator.err = fmt.Errorf("%w: offline", translation.ErrTranslationFailed)
	env.send("hello")

	if got := env.api.last(t); !strings.Contains(got, "❌ Translation failed") {
		t.Errorf("reply = %q", got)
	}
	stats, err := env.history.Stats(context.Background(), testChat)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TranslatedWords != 0 {
		t.Errorf("failed lookup recorded as translated")
	}
}

func TestTranslateCallbackEditsMessage(t *testing.T) {
	env := newTestEnv(t)
	env.press("tr:gamma")

	edit, ok := env.api.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("sent %T, want an edit", env.api.sent[0])
	}
	if edit.MessageID != 7 || edit.Text != "📖 gamma\n\n你好" {
		t.Errorf("edit = %d %q", edit.MessageID, edit.Text)
	}
}

func TestSelectWordlistCallback(t *testing.T) {
	env := newTestEnv(t)
	env.press(selectPrefix + wordlistToken("1"))

	settings, err := env.users.GetSettings(context.Background(), testChat)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.SelectedWordlist != "1" {
		t.Errorf("selected = %q, want 1", settings.SelectedWordlist)
	}
	if got := env.api.last(t); !strings.Contains(got, "Switched to") || !strings.Contains(got, "2 words") {
		t.Errorf("reply = %q", got)
	}

	env.press(selectPrefix + "unknown")
	if got := env.api.lastAnswer(t); !strings.Contains(got, "no longer exists") {
		t.Errorf("answer = %q", got)
	}
}

func TestDeleteCallbackChecksOwner(t *testing.T) {
	env := newTestEnv(t)
	foreign, err := env.store.Save(99, "theirs.txt", "apple")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	own, err := env.store.Save(testChat, "mine.txt", "apple")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	env.press(deletePrefix + wordlistToken(foreign.Key))
	if got := env.api.lastAnswer(t); !strings.Contains(got, "your own") {
		t.Errorf("answer = %q", got)
	}
	if _, err := env.store.Get(foreign.Key); err != nil {
		t.Fatalf("foreign wordlist was deleted: %v", err)
	}

	env.press(deletePrefix + wordlistToken(own.Key))
	if _, err := env.store.Get(own.Key); !errors.Is(err, wordlist.ErrNotFound) {
		t.Fatalf("own wordlist still present: %v", err)
	}
}

func TestBuildPersonalWordlistCallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.press(buildListData)
	if got := env.api.lastAnswer(t); !strings.Contains(got, "No words") {
		t.Errorf("answer with empty history = %q", got)
	}

	for _, w := range []string{"Hello", "world", "hello"} {
		if err := env.history.Append(ctx, testChat, w, true, "x"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	env.press(buildListData)

	personal := env.store.PersonalWordlist(testChat)
	if personal == nil {
		t.Fatal("personal wordlist not created")
	}
	if personal.WordCount != 2 {
		t.Errorf("word count = %d, want 2", personal.WordCount)
	}
}

func TestDocumentUpload(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "apple\nbanana\n")
	}))
	defer srv.Close()
	env.api.fileURL = srv.URL

	env.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: testChat},
		Chat:     &tgbotapi.Chat{ID: testChat},
		Document: &tgbotapi.Document{FileID: "f1", FileName: "travel.txt", FileSize: 13},
	}})

	texts := env.api.texts()
	if len(texts) != 2 || texts[0] != "📥 Processing file..." {
		t.Fatalf("messages = %q", texts)
	}
	if !strings.Contains(texts[1], "uploaded with 2 words") {
		t.Errorf("result = %q", texts[1])
	}
	if owned := env.store.ListOwned(testChat); len(owned) != 1 {
		t.Errorf("owned = %d, want 1", len(owned))
	}
}

func TestDocumentRejectedBeforeDownload(t *testing.T) {
	env := newTestEnv(t)
	env.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: testChat},
		Chat:     &tgbotapi.Chat{ID: testChat},
		Document: &tgbotapi.Document{FileID: "f1", FileName: "big.txt", FileSize: 4096},
	}})
	if got := env.api.last(t); !strings.Contains(got, "too large") {
		t.Errorf("reply = %q", got)
	}
}

func TestIntervalCommand(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.send("/interval 10")
	if got := env.api.last(t); !strings.HasPrefix(got, "Usage") {
		t.Errorf("reply = %q", got)
	}

	env.send("/interval 20 10")
	if got := env.api.last(t); !strings.Contains(got, "Invalid interval") {
		t.Errorf("reply = %q", got)
	}

	env.send("/auto_start")
	env.send("/interval 10 20")
	settings, err := env.users.GetSettings(ctx, testChat)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.IntervalMin != 10 || settings.IntervalMax != 20 {
		t.Errorf("interval = %d-%d", settings.IntervalMin, settings.IntervalMax)
	}
	if env.delivery.starts != 2 {
		t.Errorf("starts = %d, want reschedule after interval change", env.delivery.starts)
	}
}

func TestAutoStartStop(t *testing.T) {
	env := newTestEnv(t)

	env.send("/auto_start")
	if got := env.api.last(t); !strings.Contains(got, "30-120") {
		t.Errorf("reply = %q", got)
	}
	if !env.delivery.IsScheduled(testChat) {
		t.Fatal("delivery not started")
	}

	env.send("/auto_stop")
	if env.delivery.IsScheduled(testChat) {
		t.Fatal("delivery not stopped")
	}
	if got := env.api.last(t); !strings.Contains(got, "disabled") {
		t.Errorf("reply = %q", got)
	}
}

func TestStartAndStatsCommands(t *testing.T) {
	env := newTestEnv(t)
	env.send("/word")
	env.send("/start")
	if got := env.api.last(t); !strings.Contains(got, "Hello, tester") || !strings.Contains(got, "Book 3 (3 words)") {
		t.Errorf("welcome = %q", got)
	}

	env.send("/stats")
	got := env.api.last(t)
	if !strings.Contains(got, "Words received: 1") || !strings.Contains(got, "🔴 off") {
		t.Errorf("stats = %q", got)
	}
}
