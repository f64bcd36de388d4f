package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mnemos-ai/mnemos/internal/core/model"
)

func TestExtractKeywordsFiltersAndDedupes(t *testing.T) {
	kws := ExtractKeywords(model.AbstractEvent{
		Keywords:    []string{"Задача", "CI"},
		SourceQuote: "завтра я начну задачу, это будет про CI!",
	})

	// "ci" is too short, "я"/"это"/"будет"/"про" are stop/short words,
	// "задачу" and "задача" differ so both survive
	assert.Contains(t, kws, "задача")
	assert.Contains(t, kws, "завтра")
	assert.Contains(t, kws, "начну")
	assert.Contains(t, kws, "задачу")
	assert.NotContains(t, kws, "ci")
	assert.NotContains(t, kws, "это")
	assert.NotContains(t, kws, "будет")

	seen := map[string]int{}
	for _, k := range kws {
		seen[k]++
		assert.Equal(t, 1, seen[k], "keyword %q duplicated", k)
	}
}

func TestExtractKeywordsStripsPunctuationAndAccents(t *testing.T) {
	kws := ExtractKeywords(model.AbstractEvent{
		SourceQuote: "Café résumé, (deadline)!",
	})

	assert.Contains(t, kws, "cafe")
	assert.Contains(t, kws, "resume")
	assert.Contains(t, kws, "deadline")
}

func TestExtractKeywordsCap(t *testing.T) {
	kws := ExtractKeywords(model.AbstractEvent{
		SourceQuote: "alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima",
	})

	assert.Len(t, kws, 10)
	assert.Equal(t, "alpha", kws[0])
}

func TestExtractKeywordsEmptyEvent(t *testing.T) {
	assert.Empty(t, ExtractKeywords(model.AbstractEvent{}))
}
