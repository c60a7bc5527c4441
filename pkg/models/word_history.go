package models

import (
	"database/sql"
	"time"
)

// WordHistoryEntry is one occurrence of a word shown to or looked up by a user
type WordHistoryEntry struct {
	ID          int64          `json:"id" db:"id"`
	ChatID      int64          `json:"chat_id" db:"chat_id"`
	Word        string         `json:"word" db:"word"`
	Translated  bool           `json:"translated" db:"translated"`
	Translation sql.NullString `json:"translation" db:"translation"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// UserStats summarizes a user's history
type UserStats struct {
	TotalWords      int `json:"total_words" db:"total_words"`
	TodayWords      int `json:"today_words" db:"today_words"`
	TranslatedWords int `json:"translated_words" db:"translated_words"`
}
