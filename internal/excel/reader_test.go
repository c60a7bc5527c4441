package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestReadTextAllColumns(t *testing.T) {
	buf := workbook(t, [][]string{
		{"apple", "banana"},
		{"go (went, gone)", "", "cherry"},
	})

	text, err := ReadText(buf, DefaultReadConfig())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "apple, banana\ngo, cherry"
	if text != want {
		t.Fatalf("text = %q, want %q", text, want)
	}
}

func TestReadTextWordColumn(t *testing.T) {
	buf := workbook(t, [][]string{
		{"Word", "Translation"},
		{"house", "дом"},
		{"tree", "дерево"},
	})

	text, err := ReadText(buf, ReadConfig{WordColumn: "A", StartRow: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if text != "house\ntree" {
		t.Fatalf("text = %q", text)
	}
}

func TestReadTextRejectsGarbage(t *testing.T) {
	if _, err := ReadText(strings.NewReader("not a workbook"), DefaultReadConfig()); err == nil {
		t.Fatal("expected an error for non-xlsx input")
	}
}

func TestColumnToIndex(t *testing.T) {
	tests := map[string]int{"A": 0, "b": 1, "Z": 25, "AA": 26, "": -1, "1": -1}
	for in, want := range tests {
		if got := columnToIndex(in); got != want {
			t.Errorf("columnToIndex(%q) = %d, want %d", in, got, want)
		}
	}
}
