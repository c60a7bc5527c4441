package models

// WordlistType distinguishes bundled wordlists from uploaded ones
type WordlistType string

const (
	WordlistSystem WordlistType = "system"
	WordlistUser   WordlistType = "user"
)

// Wordlist describes one indexed word collection on disk
type Wordlist struct {
	Key         string       `json:"key"`
	Path        string       `json:"path"`
	FileName    string       `json:"file_name"`
	DisplayName string       `json:"display_name"`
	Type        WordlistType `json:"type"`
	OwnerID     int64        `json:"owner_id"` // zero for system wordlists
	WordCount   int          `json:"word_count"`
}

// OwnedBy reports whether the wordlist is a user collection belonging to chatID
func (w *Wordlist) OwnedBy(chatID int64) bool {
	return w.Type == WordlistUser && w.OwnerID != 0 && w.OwnerID == chatID
}
