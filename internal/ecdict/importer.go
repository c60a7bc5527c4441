package ecdict

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
}

var csvColumns = []string{
	"word", "phonetic", "definition", "translation", "pos",
	"collins", "oxford", "tag", "bnc", "frq", "exchange", "detail", "audio",
}

// ImportCSV converts an ecdict.csv file into the sqlite database at dbPath
func ImportCSV(ctx context.Context, csvPath, dbPath string) (*ImportResult, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create dictionary directory: %v", err)
	}
	db, err := sqlx.Connect("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create dictionary schema: %v", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %v", err)
	}
	positions := columnPositions(header)
	if _, ok := positions["word"]; !ok {
		return nil, fmt.Errorf("CSV header has no word column")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO stardict
			(word, sw, phonetic, definition, translation, pos, collins, oxford, tag, bnc, frq, exchange, detail, audio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %v", err)
	}
	defer stmt.Close()

	result := &ImportResult{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}
		result.TotalProcessed++

		field := func(name string) string {
			i, ok := positions[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.ReplaceAll(strings.TrimSpace(row[i]), `\n`, "\n")
		}

		word := field("word")
		if word == "" {
			result.Skipped++
			continue
		}

		_, err = stmt.ExecContext(ctx,
			word, StripWord(word),
			field("phonetic"), field("definition"), field("translation"), field("pos"),
			atoi(field("collins")), atoi(field("oxford")), field("tag"),
			atoi(field("bnc")), atoi(field("frq")),
			field("exchange"), field("detail"), field("audio"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %q: %v", word, err)
		}
		result.Created++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %v", err)
	}
	return result, nil
}

func columnPositions(header []string) map[string]int {
	positions := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for _, known := range csvColumns {
			if name == known {
				positions[name] = i
			}
		}
	}
	return positions
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
