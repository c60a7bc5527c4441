package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadConfig selects which part of a workbook holds the words
type ReadConfig struct {
	SheetName  string // Sheet to read; first sheet when empty
	WordColumn string // Column with the word ("A"); every column when empty
	StartRow   int    // The row to start reading from (1-based index)
}

// DefaultReadConfig returns the default configuration
func DefaultReadConfig() ReadConfig {
	return ReadConfig{
		StartRow: 1,
	}
}

// ReadText extracts the words of a workbook as wordlist text, one line per row
// with the row's cells joined by commas
func ReadText(r io.Reader, config ReadConfig) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return "", fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to get rows: %v", err)
	}

	var lines []string
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if line := rowText(row, config); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func rowText(row []string, config ReadConfig) string {
	if config.WordColumn != "" {
		idx := columnToIndex(config.WordColumn)
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return cleanWord(row[idx])
	}

	cells := make([]string, 0, len(row))
	for _, cell := range row {
		if word := cleanWord(cell); word != "" {
			cells = append(cells, word)
		}
	}
	return strings.Join(cells, ", ")
}

// cleanWord removes the extra information in parentheses, "go (went, gone)" -> "go"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		word = word[:i]
	}
	return strings.TrimSpace(word)
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
