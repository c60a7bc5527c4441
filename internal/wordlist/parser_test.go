package wordlist

import (
	"reflect"
	"sort"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"case sensitive dedupe", "apple, banana\nBANANA, cherry", []string{"BANANA", "apple", "banana", "cherry"}},
		{"blank lines and spaces", "\n  dog ,cat,, \r\n\n cat\n", []string{"cat", "dog"}},
		{"upper-case header", "UNIT 1\nalpha, beta", []string{"alpha", "beta"}},
		{"marker line", "The Real Saint Nick, story\ngift", []string{"gift"}},
		{"unicase words kept", "生活用品, 苹果", []string{"生活用品", "苹果"}},
		{"mixed case line kept", "Apple, Pie", []string{"Apple", "Pie"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSortedUniqueIdempotent(t *testing.T) {
	content := "zeta, alpha, Beta\nalpha, gamma, zeta\nHEADER\nbeta"
	first := Parse(content)
	if !sort.StringsAreSorted(first) {
		t.Fatalf("not sorted: %q", first)
	}
	for i := 1; i < len(first); i++ {
		if first[i] == first[i-1] {
			t.Fatalf("duplicate %q", first[i])
		}
	}
	if second := Parse(content); !reflect.DeepEqual(first, second) {
		t.Fatalf("second parse %q differs from %q", second, first)
	}
}

func TestIsHeader(t *testing.T) {
	tests := map[string]bool{
		"UNIT ONE":      true,
		"WORDS 1-20":    true,
		"Unit One":      false,
		"123, 456":      false,
		"词汇":            false,
		"ǅ":             false,
		"The Real Saint Nick": true,
	}
	for line, want := range tests {
		if got := isHeader(line); got != want {
			t.Errorf("isHeader(%q) = %v, want %v", line, got, want)
		}
	}
}
