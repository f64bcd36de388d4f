package enrich

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mnemos-ai/mnemos/internal/core/model"
)

const maxKeywords = 10

// stopWords are function words that carry no retrieval signal, in the
// two languages the chat corpus actually contains.
var stopWords = map[string]struct{}{
	// English
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {},
	"will": {}, "have": {}, "about": {}, "from": {}, "into": {},
	"would": {}, "should": {}, "could": {}, "them": {}, "then": {},
	"than": {}, "was": {}, "are": {}, "you": {}, "not": {}, "but": {},
	// Russian
	"это": {}, "как": {}, "что": {}, "когда": {}, "где": {}, "для": {},
	"его": {}, "она": {}, "они": {}, "оно": {}, "мне": {}, "меня": {},
	"тебе": {}, "себя": {}, "надо": {}, "нужно": {}, "будет": {},
	"был": {}, "была": {}, "были": {}, "есть": {}, "чтобы": {}, "если": {},
	"или": {}, "так": {}, "все": {}, "уже": {}, "еще": {}, "при": {},
	"под": {}, "над": {}, "про": {},
}

// accent-stripping transformer: decompose, drop combining marks,
// recompose.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ExtractKeywords builds the retrieval keyword set for an abstract event
// from its structured keywords and source quote: lowercase, strip
// accents and punctuation, drop short tokens and stop words, dedupe,
// cap at ten.
func ExtractKeywords(event model.AbstractEvent) []string {
	var tokens []string
	for _, kw := range event.Keywords {
		tokens = append(tokens, strings.Fields(kw)...)
	}
	tokens = append(tokens, strings.Fields(event.SourceQuote)...)

	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxKeywords)
	for _, tok := range tokens {
		cleaned := cleanToken(tok)
		if len([]rune(cleaned)) < 3 {
			continue
		}
		if _, stop := stopWords[cleaned]; stop {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		keywords = append(keywords, cleaned)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func cleanToken(tok string) string {
	lowered := strings.ToLower(tok)
	if folded, _, err := transform.String(deaccent, lowered); err == nil {
		lowered = folded
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, lowered)
}
