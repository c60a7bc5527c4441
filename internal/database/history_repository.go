package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordbot/pkg/models"
)

// HistoryRepository handles the append-only word history
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new repository instance
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append records a word shown to or looked up by the user.
// An empty translation is stored as NULL.
func (r *HistoryRepository) Append(ctx context.Context, chatID int64, word string, translated bool, translation string) error {
	var text sql.NullString
	if translation != "" {
		text = sql.NullString{String: translation, Valid: true}
	}

	query := r.db.Rebind(`
		INSERT INTO word_history (chat_id, word, translated, translation, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query, chatID, word, translated, text, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Count returns the number of history entries of the last sinceDays days.
// sinceDays <= 0 counts all time.
func (r *HistoryRepository) Count(ctx context.Context, chatID int64, sinceDays int) (int, error) {
	var count int
	var err error
	if sinceDays <= 0 {
		err = r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM word_history WHERE chat_id = ?"), chatID)
	} else {
		since := time.Now().UTC().AddDate(0, 0, -sinceDays)
		err = r.db.GetContext(ctx, &count,
			r.db.Rebind("SELECT COUNT(*) FROM word_history WHERE chat_id = ? AND created_at >= ?"), chatID, since)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// Stats summarizes the user's history. Today starts at midnight UTC.
func (r *HistoryRepository) Stats(ctx context.Context, chatID int64) (*models.UserStats, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total_words,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS today_words,
			COALESCE(SUM(CASE WHEN translated = ? THEN 1 ELSE 0 END), 0) AS translated_words
		FROM word_history
		WHERE chat_id = ?
	`)
	var stats models.UserStats
	if err := r.db.GetContext(ctx, &stats, query, today, true, chatID); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

// DistinctQueriedWords returns the words the user looked up, most recent first.
// limit <= 0 returns all of them.
func (r *HistoryRepository) DistinctQueriedWords(ctx context.Context, chatID int64, limit int) ([]string, error) {
	query := `
		SELECT LOWER(word) AS word
		FROM word_history
		WHERE chat_id = ? AND translated = ?
		GROUP BY LOWER(word)
		ORDER BY MAX(created_at) DESC, LOWER(word)
	`
	args := []interface{}{chatID, true}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var words []string
	if err := r.db.SelectContext(ctx, &words, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get queried words: %w", err)
	}
	return words, nil
}

// CountDistinctQueriedWords returns how many different words the user looked up
func (r *HistoryRepository) CountDistinctQueriedWords(ctx context.Context, chatID int64) (int, error) {
	query := r.db.Rebind("SELECT COUNT(DISTINCT LOWER(word)) FROM word_history WHERE chat_id = ? AND translated = ?")
	var count int
	if err := r.db.GetContext(ctx, &count, query, chatID, true); err != nil {
		return 0, fmt.Errorf("failed to count queried words: %w", err)
	}
	return count, nil
}
