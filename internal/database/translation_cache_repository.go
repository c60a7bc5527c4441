package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordbot/pkg/models"
)

// TranslationCacheRepository memoizes rendered translations by lower-cased word
type TranslationCacheRepository struct {
	db *sqlx.DB
}

// NewTranslationCacheRepository creates a new repository instance
func NewTranslationCacheRepository(db *sqlx.DB) *TranslationCacheRepository {
	return &TranslationCacheRepository{db: db}
}

// Get returns the cached translation and counts the hit.
// ok is false on a miss.
func (r *TranslationCacheRepository) Get(ctx context.Context, word string) (text string, ok bool, err error) {
	query := r.db.Rebind(`
		UPDATE translation_cache
		SET usage_count = usage_count + 1
		WHERE word = ?
		RETURNING translation
	`)
	err = r.db.GetContext(ctx, &text, query, cacheKey(word))
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read translation cache: %w", err)
	}
	return text, true, nil
}

// Put stores a translation; an existing entry is overwritten and its usage counted
func (r *TranslationCacheRepository) Put(ctx context.Context, word, text string) error {
	query := r.db.Rebind(`
		INSERT INTO translation_cache (word, translation, created_at, usage_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (word) DO UPDATE SET
			translation = excluded.translation,
			usage_count = translation_cache.usage_count + 1
	`)
	if _, err := r.db.ExecContext(ctx, query, cacheKey(word), text, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write translation cache: %w", err)
	}
	return nil
}

// Entry returns the cache row without counting a hit, nil on miss
func (r *TranslationCacheRepository) Entry(ctx context.Context, word string) (*models.TranslationCacheEntry, error) {
	var entry models.TranslationCacheEntry
	query := r.db.Rebind("SELECT word, translation, created_at, usage_count FROM translation_cache WHERE word = ?")
	err := r.db.GetContext(ctx, &entry, query, cacheKey(word))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return &entry, nil
}

func cacheKey(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
