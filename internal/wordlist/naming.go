package wordlist

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	systemPrefix     = "4000_Essential_English_Words_Book_2nd_Edition."
	userKeyPrefix    = "user_"
	defaultName      = "Custom Wordlist"
	queriedName      = "My Queried Words"
	personalSuffix   = "personal_query"
	timestampLayout  = "20060102_150405"
	maxSafeNameRunes = 64
)

var leadingDigits = regexp.MustCompile(`^\d+\s*`)

// DisplayName derives a human readable name from an uploaded file name
func DisplayName(filename string) string {
	name := filename
	if strings.HasSuffix(strings.ToLower(name), ".txt") {
		name = name[:len(name)-4]
	}

	if fields := strings.Fields(name); len(fields) > 0 && isDigits(fields[0]) {
		name = strings.Join(fields[1:], " ")
	}
	if name == "" || isDigits(name) {
		return defaultName
	}

	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = leadingDigits.ReplaceAllString(name, "")

	fields := strings.Fields(name)
	if len(fields) == 0 {
		return defaultName
	}
	for i, f := range fields {
		fields[i] = capitalize(f)
	}
	return strings.Join(fields, " ")
}

// SanitizeFilename keeps letters, digits and " -_." and guarantees a .txt extension
func SanitizeFilename(filename string) string {
	var b strings.Builder
	for _, r := range filepath.Base(filename) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_.", r) {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimRight(b.String(), " ")
	safe = strings.TrimSuffix(safe, ".txt")
	safe = strings.Trim(safe, ". ")
	if utf8.RuneCountInString(safe) > maxSafeNameRunes {
		safe = string([]rune(safe)[:maxSafeNameRunes])
	}
	if safe == "" {
		safe = "wordlist"
	}
	return safe + ".txt"
}

// userFileName builds the on-disk name of an uploaded collection
func userFileName(ownerID int64, stamp, safe string) string {
	return fmt.Sprintf("%d_%s_%s", ownerID, stamp, safe)
}

// personalFileName is the fixed name of a user's queried-words collection
func personalFileName(ownerID int64) string {
	return fmt.Sprintf("%d_%s.txt", ownerID, personalSuffix)
}

// UserKey returns the index key of a user collection file
func UserKey(fileName string) string {
	return userKeyPrefix + strings.TrimSuffix(fileName, ".txt")
}

// systemEntry derives key and display name for a bundled wordlist file
func systemEntry(fileName string) (key, display string) {
	base := strings.TrimSuffix(fileName, ".txt")
	if strings.HasPrefix(base, systemPrefix) && len(base) > len(systemPrefix) {
		book := base[len(systemPrefix):]
		return book, "4000 Essential English Words · Book " + book
	}
	return base, DisplayName(fileName)
}

// userEntry derives owner and display name from {owner}_{stamp}_{name}.txt.
// The owner is zero when the name carries no numeric prefix.
func userEntry(fileName string) (owner int64, display string) {
	parts := strings.SplitN(strings.TrimSuffix(fileName, ".txt"), "_", 3)
	if id, err := strconv.ParseInt(parts[0], 10, 64); err == nil {
		owner = id
	}
	if len(parts) < 3 {
		return owner, DisplayName(fileName)
	}
	if parts[1]+"_"+parts[2] == personalSuffix {
		return owner, queriedName
	}
	return owner, DisplayName(parts[2] + ".txt")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
