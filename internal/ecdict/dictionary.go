package ecdict

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/wordbot/pkg/models"
)

// ErrUnavailable is returned when the dictionary database does not exist
var ErrUnavailable = errors.New("dictionary unavailable")

const schema = `
CREATE TABLE IF NOT EXISTS stardict (
    id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL UNIQUE,
    word VARCHAR(64) COLLATE NOCASE NOT NULL UNIQUE,
    sw VARCHAR(64) COLLATE NOCASE NOT NULL,
    phonetic VARCHAR(64),
    definition TEXT,
    translation TEXT,
    pos VARCHAR(16),
    collins INTEGER DEFAULT(0),
    oxford INTEGER DEFAULT(0),
    tag VARCHAR(64),
    bnc INTEGER DEFAULT(NULL),
    frq INTEGER DEFAULT(NULL),
    exchange TEXT,
    detail TEXT,
    audio TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS stardict_1 ON stardict (id);
CREATE UNIQUE INDEX IF NOT EXISTS stardict_2 ON stardict (word);
CREATE INDEX IF NOT EXISTS stardict_3 ON stardict (sw, word collate nocase);
CREATE INDEX IF NOT EXISTS sd_1 ON stardict (word collate nocase);
`

// Dictionary answers lookups from an ECDICT sqlite database
type Dictionary struct {
	db *sqlx.DB
}

// Open opens the dictionary database read-only
func Open(path string) (*Dictionary, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return nil, fmt.Errorf("failed to stat dictionary: %v", err)
	}

	db, err := sqlx.Connect("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %v", err)
	}
	return &Dictionary{db: db}, nil
}

// Close closes the database
func (d *Dictionary) Close() error {
	return d.db.Close()
}

// Query returns the entry for word, matched case-insensitively; nil when absent
func (d *Dictionary) Query(ctx context.Context, word string) (*models.DictionaryEntry, error) {
	query := `
		SELECT word,
			COALESCE(phonetic, '') AS phonetic,
			COALESCE(definition, '') AS definition,
			COALESCE(translation, '') AS translation,
			COALESCE(pos, '') AS pos,
			COALESCE(collins, 0) AS collins,
			COALESCE(oxford, 0) AS oxford,
			COALESCE(tag, '') AS tag,
			COALESCE(bnc, 0) AS bnc,
			COALESCE(frq, 0) AS frq,
			COALESCE(exchange, '') AS exchange
		FROM stardict
		WHERE word = ? COLLATE NOCASE
		LIMIT 1
	`
	var entry models.DictionaryEntry
	err := d.db.GetContext(ctx, &entry, query, strings.TrimSpace(word))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dictionary: %w", err)
	}
	return &entry, nil
}

// FuzzyMatch returns up to limit headwords whose stripped form sorts at or after word's
func (d *Dictionary) FuzzyMatch(ctx context.Context, word string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	sw := StripWord(word)
	if sw == "" {
		return nil, nil
	}

	var words []string
	query := "SELECT word FROM stardict WHERE sw >= ? ORDER BY sw, word COLLATE NOCASE LIMIT ?"
	if err := d.db.SelectContext(ctx, &words, query, sw, limit); err != nil {
		return nil, fmt.Errorf("failed to match dictionary: %w", err)
	}
	return words, nil
}

// StripWord lowercases word and keeps only letters and digits
func StripWord(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
