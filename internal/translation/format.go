package translation

import (
	"fmt"
	"strings"

	"github.com/example/wordbot/pkg/models"
)

var examTags = []struct{ tag, name string }{
	{"zk", "中考"},
	{"gk", "高考"},
	{"ky", "考研"},
	{"cet4", "CET-4"},
	{"cet6", "CET-6"},
	{"toefl", "TOEFL"},
	{"ielts", "IELTS"},
	{"gre", "GRE"},
}

var exchangeForms = []struct{ key, name string }{
	{"p", "past tense"},
	{"d", "past participle"},
	{"i", "present participle"},
	{"3", "third person"},
	{"r", "comparative"},
	{"t", "superlative"},
	{"s", "plural"},
	{"0", "lemma"},
}

// FormatEntry renders the non-empty fields of a dictionary entry in a fixed order
func FormatEntry(e *models.DictionaryEntry) string {
	lines := []string{"📖 " + e.Word}

	if e.Phonetic != "" {
		lines = append(lines, "🔊 /"+e.Phonetic+"/")
	}
	if e.Translation != "" {
		lines = append(lines, "🇨🇳 "+e.Translation)
	}
	if e.Definition != "" {
		lines = append(lines, "🇬🇧 "+e.Definition)
	}
	if e.POS != "" {
		lines = append(lines, "📝 POS: "+e.POS)
	}

	var levels []string
	if e.Collins > 0 {
		levels = append(levels, fmt.Sprintf("Collins %d★", e.Collins))
	}
	if e.Oxford > 0 {
		levels = append(levels, "Oxford 3000")
	}
	if e.BNC > 0 {
		levels = append(levels, fmt.Sprintf("BNC %d", e.BNC))
	}
	if e.FRQ > 0 {
		levels = append(levels, fmt.Sprintf("FRQ %d", e.FRQ))
	}
	if len(levels) > 0 {
		lines = append(lines, "⭐ "+strings.Join(levels, " | "))
	}

	if exams := formatTags(e.Tag); exams != "" {
		lines = append(lines, "🎯 Exams: "+exams)
	}
	if forms := formatExchange(e.Exchange); forms != "" {
		lines = append(lines, "🔄 "+forms)
	}

	return strings.Join(lines, "\n")
}

func formatTags(tag string) string {
	present := make(map[string]bool)
	for _, t := range strings.Fields(tag) {
		present[t] = true
	}
	var names []string
	for _, et := range examTags {
		if present[et.tag] {
			names = append(names, et.name)
		}
	}
	return strings.Join(names, " | ")
}

// formatExchange renders ECDICT inflections, "p:went/d:gone"
func formatExchange(exchange string) string {
	forms := make(map[string]string)
	for _, item := range strings.Split(exchange, "/") {
		key, value, ok := strings.Cut(item, ":")
		if ok && value != "" {
			forms[key] = value
		}
	}
	var parts []string
	for _, f := range exchangeForms {
		if value, ok := forms[f.key]; ok {
			parts = append(parts, f.name+": "+value)
		}
	}
	return strings.Join(parts, ", ")
}

// formatSuggestions renders the "did you mean" reply for a dictionary miss
func formatSuggestions(word string, candidates []string) string {
	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	return fmt.Sprintf("❌ '%s' was not found in the dictionary\n💡 Did you mean: %s", word, strings.Join(candidates, ", "))
}
