package models

// DictionaryEntry is a structured dictionary hit in ECDICT layout
type DictionaryEntry struct {
	Word        string `json:"word" db:"word"`
	Phonetic    string `json:"phonetic" db:"phonetic"`
	Definition  string `json:"definition" db:"definition"`   // English definition
	Translation string `json:"translation" db:"translation"` // Chinese gloss
	POS         string `json:"pos" db:"pos"`
	Collins     int    `json:"collins" db:"collins"` // Collins star rating, 0-5
	Oxford      int    `json:"oxford" db:"oxford"`   // 1 if in the Oxford 3000
	Tag         string `json:"tag" db:"tag"`         // space separated exam tags
	BNC         int    `json:"bnc" db:"bnc"`
	FRQ         int    `json:"frq" db:"frq"`
	Exchange    string `json:"exchange" db:"exchange"` // inflections, "p:went/d:gone"
}
