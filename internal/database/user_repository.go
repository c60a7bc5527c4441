package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/wordbot/pkg/models"
)

// ErrInvalidInterval is returned when an interval pair violates 1 <= min <= max
var ErrInvalidInterval = errors.New("invalid delivery interval")

// Settings defaults applied when a user's settings row is first created
const (
	DefaultIntervalMin = 30
	DefaultIntervalMax = 120
	DefaultWordlist    = "3"
)

// UserRepository handles users and their delivery settings
type UserRepository struct {
	db *sqlx.DB

	intervalMin int
	intervalMax int
	wordlist    string
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db:          db,
		intervalMin: DefaultIntervalMin,
		intervalMax: DefaultIntervalMax,
		wordlist:    DefaultWordlist,
	}
}

// WithDefaults overrides the values new settings rows are created with
func (r *UserRepository) WithDefaults(intervalMin, intervalMax int, wordlist string) *UserRepository {
	if intervalMin >= 1 && intervalMin <= intervalMax {
		r.intervalMin = intervalMin
		r.intervalMax = intervalMax
	}
	if wordlist != "" {
		r.wordlist = wordlist
	}
	return r
}

// Touch records user activity, creating the user and default settings if needed
func (r *UserRepository) Touch(ctx context.Context, chatID int64, username, firstName, lastName string) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO users (chat_id, username, first_name, last_name, is_active, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			is_active = excluded.is_active,
			last_activity = excluded.last_activity
	`)
	if _, err := r.db.ExecContext(ctx, query, chatID, username, firstName, lastName, true, now, now); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return r.ensureSettings(ctx, chatID, now)
}

// GetOrCreate returns the user, creating an empty record on first access
func (r *UserRepository) GetOrCreate(ctx context.Context, chatID int64) (*models.User, error) {
	if err := r.ensureUser(ctx, chatID, time.Now().UTC()); err != nil {
		return nil, err
	}

	var user models.User
	query := r.db.Rebind(`
		SELECT chat_id, username, first_name, last_name, is_active, created_at, last_activity
		FROM users WHERE chat_id = ?
	`)
	if err := r.db.GetContext(ctx, &user, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetSettings returns the user's settings, creating defaults on first access
func (r *UserRepository) GetSettings(ctx context.Context, chatID int64) (*models.UserSettings, error) {
	if err := r.ensureSettings(ctx, chatID, time.Now().UTC()); err != nil {
		return nil, err
	}
	settings, err := r.loadSettings(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, fmt.Errorf("failed to get settings: %w", sql.ErrNoRows)
	}
	return settings, nil
}

// SetAutoSend persists the auto-send flag
func (r *UserRepository) SetAutoSend(ctx context.Context, chatID int64, enabled bool) error {
	return r.updateSettings(ctx, chatID, "auto_send_enabled = ?", enabled)
}

// SetSelectedWordlist persists the wordlist used for deliveries
func (r *UserRepository) SetSelectedWordlist(ctx context.Context, chatID int64, key string) error {
	return r.updateSettings(ctx, chatID, "selected_wordlist = ?", key)
}

// SetIntervals persists the delivery interval bounds in seconds
func (r *UserRepository) SetIntervals(ctx context.Context, chatID int64, intervalMin, intervalMax int) error {
	if intervalMin < 1 || intervalMin > intervalMax {
		return fmt.Errorf("%w: min=%d max=%d", ErrInvalidInterval, intervalMin, intervalMax)
	}
	return r.updateSettings(ctx, chatID, "auto_send_interval_min = ?, auto_send_interval_max = ?", intervalMin, intervalMax)
}

// ListAutoSendEnabled returns the settings of every user with auto-send on
func (r *UserRepository) ListAutoSendEnabled(ctx context.Context) ([]models.UserSettings, error) {
	query := r.db.Rebind(`
		SELECT chat_id, auto_send_enabled, auto_send_interval_min, auto_send_interval_max,
			selected_wordlist, created_at, updated_at
		FROM user_settings
		WHERE auto_send_enabled = ?
		ORDER BY chat_id
	`)
	var settings []models.UserSettings
	if err := r.db.SelectContext(ctx, &settings, query, true); err != nil {
		return nil, fmt.Errorf("failed to list auto-send users: %w", err)
	}
	return settings, nil
}

func (r *UserRepository) updateSettings(ctx context.Context, chatID int64, set string, args ...interface{}) error {
	now := time.Now().UTC()
	if err := r.ensureSettings(ctx, chatID, now); err != nil {
		return err
	}

	query := r.db.Rebind("UPDATE user_settings SET " + set + ", updated_at = ? WHERE chat_id = ?")
	args = append(args, now, chatID)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

func (r *UserRepository) ensureUser(ctx context.Context, chatID int64, now time.Time) error {
	query := r.db.Rebind(`
		INSERT INTO users (chat_id, is_active, created_at, last_activity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id) DO NOTHING
	`)
	if _, err := r.db.ExecContext(ctx, query, chatID, true, now, now); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) ensureSettings(ctx context.Context, chatID int64, now time.Time) error {
	if err := r.ensureUser(ctx, chatID, now); err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO user_settings (chat_id, auto_send_enabled, auto_send_interval_min, auto_send_interval_max,
			selected_wordlist, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO NOTHING
	`)
	if _, err := r.db.ExecContext(ctx, query, chatID, false, r.intervalMin, r.intervalMax, r.wordlist, now, now); err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}
	return nil
}

func (r *UserRepository) loadSettings(ctx context.Context, chatID int64) (*models.UserSettings, error) {
	var settings models.UserSettings
	query := r.db.Rebind(`
		SELECT chat_id, auto_send_enabled, auto_send_interval_min, auto_send_interval_max,
			selected_wordlist, created_at, updated_at
		FROM user_settings WHERE chat_id = ?
	`)
	err := r.db.GetContext(ctx, &settings, query, chatID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}
