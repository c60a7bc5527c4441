package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/wordbot/pkg/models"
)

// ErrTranslationFailed is returned when no tier produced a translation
var ErrTranslationFailed = errors.New("translation failed")

const (
	// DefaultPromptTemplate asks the generative provider for a Chinese translation
	DefaultPromptTemplate = "翻译 %s"

	fuzzyLimit     = 5
	maxSuggestions = 3
)

// Cache is the shared translation memo keyed by lower-cased word
type Cache interface {
	Get(ctx context.Context, word string) (string, bool, error)
	Put(ctx context.Context, word, text string) error
}

// Dictionary is a structured word lookup
type Dictionary interface {
	Query(ctx context.Context, word string) (*models.DictionaryEntry, error)
	FuzzyMatch(ctx context.Context, word string, limit int) ([]string, error)
}

// Generator produces free text for a prompt
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Resolver translates words through the cache, the dictionary and the generator, in order.
// Dictionary and generator may be nil when unavailable.
type Resolver struct {
	cache     Cache
	dict      Dictionary
	generator Generator
	prompt    string
	logger    *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(cache Cache, dict Dictionary, generator Generator, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cache:     cache,
		dict:      dict,
		generator: generator,
		prompt:    DefaultPromptTemplate,
		logger:    logger,
	}
}

// WithPromptTemplate sets the generator prompt; template must contain one %s
func (r *Resolver) WithPromptTemplate(template string) *Resolver {
	if strings.Contains(template, "%s") {
		r.prompt = template
	}
	return r
}

// Resolve returns the formatted translation of word
func (r *Resolver) Resolve(ctx context.Context, word string) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return "", fmt.Errorf("%w: empty word", ErrTranslationFailed)
	}
	key := strings.ToLower(word)
	log := r.logger.With(zap.String("word", key))

	text, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		log.Warn("translation cache read failed", zap.Error(err))
	} else if ok {
		log.Debug("translation cache hit")
		return text, nil
	}

	if r.dict != nil {
		text, found, err := r.lookup(ctx, word, key)
		if err != nil {
			log.Warn("dictionary lookup failed", zap.Error(err))
		} else if found {
			return text, nil
		}
	}

	return r.generate(ctx, word, key)
}

// lookup consults the dictionary. A hit is cached; suggestions for a miss are not.
// found is false when the dictionary has neither the word nor any suggestion.
func (r *Resolver) lookup(ctx context.Context, word, key string) (string, bool, error) {
	entry, err := r.dict.Query(ctx, key)
	if err != nil {
		return "", false, err
	}
	if entry != nil {
		text := FormatEntry(entry)
		r.store(ctx, key, text)
		return text, true, nil
	}

	candidates, err := r.dict.FuzzyMatch(ctx, key, fuzzyLimit)
	if err != nil {
		return "", false, err
	}
	if len(candidates) == 0 {
		return "", false, nil
	}
	return formatSuggestions(word, candidates), true, nil
}

func (r *Resolver) generate(ctx context.Context, word, key string) (string, error) {
	if r.generator == nil {
		return "", fmt.Errorf("%w: no provider for %q", ErrTranslationFailed, word)
	}

	text, err := r.generator.Complete(ctx, fmt.Sprintf(r.prompt, word))
	if err != nil {
		r.logger.Error("generative translation failed", zap.String("word", key), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty reply for %q", ErrTranslationFailed, word)
	}

	r.store(ctx, key, text)
	return text, nil
}

func (r *Resolver) store(ctx context.Context, key, text string) {
	if err := r.cache.Put(ctx, key, text); err != nil {
		r.logger.Warn("translation cache write failed", zap.String("word", key), zap.Error(err))
	}
}
