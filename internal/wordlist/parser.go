package wordlist

import (
	"os"
	"sort"
	"strings"
	"unicode"
)

// headerMarkers are substrings of lines that are never word lines
var headerMarkers = []string{
	"The Real Saint Nick",
}

// fallbackWords replace a collection that could not be read
var fallbackWords = []string{"apple", "banana", "cherry"}

const fallbackWord = "apple"

// Parse extracts the sorted, deduplicated word set from wordlist file content.
// Dedupe is case-sensitive.
func Parse(content string) []string {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" || isHeader(line) {
			continue
		}
		for _, token := range strings.Split(line, ",") {
			word := strings.TrimSpace(token)
			if word == "" {
				continue
			}
			seen[word] = struct{}{}
		}
	}

	words := make([]string, 0, len(seen))
	for word := range seen {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// ParseFile reads and parses a wordlist file
func ParseFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// isHeader reports lines that are entirely upper-case or carry a known marker.
// A line is upper-case when it has at least one cased letter and none in lower or title case.
func isHeader(line string) bool {
	for _, marker := range headerMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}

	cased := false
	for _, r := range line {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
