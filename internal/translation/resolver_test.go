package translation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/wordbot/internal/database"
	"github.com/example/wordbot/pkg/models"
)

type fakeDictionary struct {
	entries    map[string]*models.DictionaryEntry
	candidates []string
	err        error
	queries    int
	fuzzy      int
}

var _ Dictionary = (*fakeDictionary)(nil)

func (d *fakeDictionary) Query(ctx context.Context, word string) (*models.DictionaryEntry, error) {
	d.queries++
	if d.err != nil {
		return nil, d.err
	}
	return d.entries[word], nil
}

func (d *fakeDictionary) FuzzyMatch(ctx context.Context, word string, limit int) ([]string, error) {
	d.fuzzy++
	if len(d.candidates) > limit {
		return d.candidates[:limit], nil
	}
	return d.candidates, nil
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

var _ Generator = (*fakeGenerator)(nil)

func (g *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

type memCache struct {
	entries map[string]string
	usage   map[string]int
	failGet bool
}

var _ Cache = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{entries: map[string]string{}, usage: map[string]int{}}
}

func (c *memCache) Get(ctx context.Context, word string) (string, bool, error) {
	if c.failGet {
		return "", false, errors.New("disk I/O error")
	}
	text, ok := c.entries[word]
	if ok {
		c.usage[word]++
	}
	return text, ok, nil
}

func (c *memCache) Put(ctx context.Context, word, text string) error {
	c.entries[word] = text
	c.usage[word]++
	return nil
}

var helloEntry = &models.DictionaryEntry{
	Word:        "hello",
	Phonetic:    "həˈləʊ",
	Translation: "int. 喂",
	Collins:     3,
	Oxford:      1,
	Tag:         "zk gk",
}

func TestResolveCachesDictionaryHit(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	cache := database.NewTranslationCacheRepository(db)

	dict := &fakeDictionary{entries: map[string]*models.DictionaryEntry{"hello": helloEntry}}
	gen := &fakeGenerator{reply: "unused"}
	r := NewResolver(cache, dict, gen, nil)

	first, err := r.Resolve(ctx, "Hello")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(first, "📖 hello") {
		t.Fatalf("unexpected text %q", first)
	}

	second, err := r.Resolve(ctx, "HELLO")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if second != first {
		t.Fatalf("cache hit returned %q, want %q", second, first)
	}
	if dict.queries != 1 || len(gen.prompts) != 0 {
		t.Fatalf("providers called: dictionary %d, generator %d", dict.queries, len(gen.prompts))
	}

	entry, err := cache.Entry(ctx, "hello")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.UsageCount != 2 {
		t.Fatalf("usage count = %d, want 2", entry.UsageCount)
	}
}

func TestResolveCacheHitSkipsProviders(t *testing.T) {
	cache := newMemCache()
	cache.entries["word"] = "cached"
	dict := &fakeDictionary{}
	gen := &fakeGenerator{}
	r := NewResolver(cache, dict, gen, nil)

	for i := 1; i <= 3; i++ {
		text, err := r.Resolve(context.Background(), "Word")
		if err != nil || text != "cached" {
			t.Fatalf("resolve = %q, %v", text, err)
		}
		if cache.usage["word"] != i {
			t.Fatalf("usage after %d calls = %d", i, cache.usage["word"])
		}
	}
	if dict.queries != 0 || dict.fuzzy != 0 || len(gen.prompts) != 0 {
		t.Fatal("providers consulted on a cache hit")
	}
}

func TestResolveSuggestionsAreNotCached(t *testing.T) {
	cache := newMemCache()
	dict := &fakeDictionary{candidates: []string{"hell", "hello", "helmet", "help", "helper"}}
	gen := &fakeGenerator{reply: "unused"}
	r := NewResolver(cache, dict, gen, nil)

	text, err := r.Resolve(context.Background(), "Helo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "❌ 'Helo' was not found in the dictionary\n💡 Did you mean: hell, hello, helmet"
	if text != want {
		t.Fatalf("text = %q, want %q", text, want)
	}
	if len(cache.entries) != 0 {
		t.Fatalf("suggestions cached: %v", cache.entries)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("generator called although suggestions exist")
	}
}

func TestResolveFallsBackToGenerator(t *testing.T) {
	tests := []struct {
		name string
		dict Dictionary
	}{
		{"no dictionary", nil},
		{"clean miss", &fakeDictionary{}},
		{"dictionary error", &fakeDictionary{err: errors.New("database is locked")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemCache()
			gen := &fakeGenerator{reply: " 你好 \n"}
			r := NewResolver(cache, tt.dict, gen, nil)

			text, err := r.Resolve(context.Background(), "Hello")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if text != "你好" {
				t.Fatalf("text = %q", text)
			}
			if len(gen.prompts) != 1 || gen.prompts[0] != "翻译 Hello" {
				t.Fatalf("prompts = %q", gen.prompts)
			}
			if cache.entries["hello"] != "你好" {
				t.Fatalf("generated text not cached: %v", cache.entries)
			}
		})
	}
}

func TestResolveGeneratorFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{"no generator", nil},
		{"provider error", &fakeGenerator{err: errors.New("connection refused")}},
		{"empty reply", &fakeGenerator{reply: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemCache()
			r := NewResolver(cache, nil, tt.gen, nil)

			_, err := r.Resolve(context.Background(), "hello")
			if !errors.Is(err, ErrTranslationFailed) {
				t.Fatalf("resolve = %v, want ErrTranslationFailed", err)
			}
			if len(cache.entries) != 0 {
				t.Fatalf("failure cached: %v", cache.entries)
			}
		})
	}
}

func TestResolveCacheErrorIsAMiss(t *testing.T) {
	cache := newMemCache()
	cache.failGet = true
	dict := &fakeDictionary{entries: map[string]*models.DictionaryEntry{"hello": helloEntry}}
	r := NewResolver(cache, dict, nil, nil)

	text, err := r.Resolve(context.Background(), "hello")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if text != FormatEntry(helloEntry) {
		t.Fatalf("text = %q", text)
	}
}

func TestResolveEmptyWord(t *testing.T) {
	r := NewResolver(newMemCache(), nil, &fakeGenerator{reply: "x"}, nil)
	if _, err := r.Resolve(context.Background(), "  "); !errors.Is(err, ErrTranslationFailed) {
		t.Fatalf("resolve = %v", err)
	}
}

func TestWithPromptTemplate(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	r := NewResolver(newMemCache(), nil, gen, nil).WithPromptTemplate("Translate %s to Chinese")
	if _, err := r.Resolve(context.Background(), "cat"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gen.prompts[0] != "Translate cat to Chinese" {
		t.Fatalf("prompt = %q", gen.prompts[0])
	}

	r.WithPromptTemplate("no placeholder")
	if r.prompt != "Translate %s to Chinese" {
		t.Fatalf("invalid template accepted: %q", r.prompt)
	}
}
