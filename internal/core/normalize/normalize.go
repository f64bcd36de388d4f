// Package normalize canonicalizes names for comparison across the
// matching stages. Chat-extracted names arrive with inconsistent casing,
// decorative quotes and legal-form suffixes ("ООО «Сбербанк»" vs
// "Сбербанк"); exact matching only works after both sides go through the
// same canonical form.
package normalize

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// legalForms are organizational-form tokens stripped as whole words.
var legalForms = map[string]struct{}{
	"ооо": {}, "оао": {}, "зао": {}, "пао": {}, "ип": {}, "ао": {},
	"нко": {}, "гуп": {}, "муп": {},
	"inc": {}, "llc": {}, "ltd": {}, "gmbh": {}, "corp": {}, "co": {},
	"plc": {}, "sa": {}, "ag": {}, "oy": {}, "bv": {}, "srl": {},
}

var quoteReplacer = strings.NewReplacer(
	`"`, " ", "'", " ", "`", " ",
	"«", " ", "»", " ",
	"“", " ", "”", " ",
	"‘", " ", "’", " ",
	"„", " ", "‟", " ",
)

// Normalize lowercases, strips quote characters, drops legal-form tokens
// and collapses whitespace. It never fails; empty input yields "".
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = quoteReplacer.Replace(s)

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:")
		if f == "" {
			continue
		}
		if _, ok := legalForms[f]; ok {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// Similarity returns 1 - levenshtein(a,b)/max(len(a),len(b)) over runes.
// Two empty strings are identical, so the result is 1.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// FirstSignificantWord returns the first token of a normalized name with
// at least three runes, or the first token when none qualifies. Used by
// the inference scanner's fallback organization search.
func FirstSignificantWord(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return ""
	}
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			return f
		}
	}
	return fields[0]
}
