package models

import "time"

// UserSettings holds the per-chat delivery preferences
type UserSettings struct {
	ChatID           int64     `json:"chat_id" db:"chat_id"`
	AutoSendEnabled  bool      `json:"auto_send_enabled" db:"auto_send_enabled"`
	IntervalMin      int       `json:"interval_min" db:"auto_send_interval_min"` // seconds
	IntervalMax      int       `json:"interval_max" db:"auto_send_interval_max"` // seconds
	SelectedWordlist string    `json:"selected_wordlist" db:"selected_wordlist"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
