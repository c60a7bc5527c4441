package models

import "time"

// TranslationCacheEntry is a memoized translation shared by all users.
// Word is always stored lower-cased.
type TranslationCacheEntry struct {
	Word        string    `json:"word" db:"word"`
	Translation string    `json:"translation" db:"translation"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UsageCount  int       `json:"usage_count" db:"usage_count"`
}
