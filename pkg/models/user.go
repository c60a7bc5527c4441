package models

import "time"

// User represents a Telegram chat using the bot
type User struct {
	ChatID       int64     `json:"chat_id" db:"chat_id"` // Telegram chat ID
	Username     string    `json:"username" db:"username"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
}

// DisplayName returns the best human readable name for the user
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
