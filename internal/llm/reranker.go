package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// SimpleLLMReranker orders documents by prompting the completion model
// for a relevance ranking. Retrieval uses it to break ties among
// substring hits when no embedder is available.
type SimpleLLMReranker struct {
	LLM LLMClient
}

func NewSimpleLLMReranker(client LLMClient) *SimpleLLMReranker {
	return &SimpleLLMReranker{LLM: client}
}

func (r *SimpleLLMReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) == 1 {
		return []int{0}, nil
	}

	docList := ""
	for i, d := range docs {
		content := d
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		docList += fmt.Sprintf("[%d] %s\n", i, content)
	}

	prompt := fmt.Sprintf(`You are a search relevance optimization system.
Query: %s

Documents:
%s

Rank the documents above based on their relevance to the query.
Output ONLY the indices of the documents in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, query, docList)

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		// Original order on failure; ranking is best-effort.
		indices := make([]int, len(docs))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	return parseIndices(resp, len(docs)), nil
}

var indexPattern = regexp.MustCompile(`\d+`)

func parseIndices(s string, n int) []int {
	var indices []int
	seen := make(map[int]bool)
	for _, m := range indexPattern.FindAllString(s, -1) {
		i, err := strconv.Atoi(m)
		if err != nil || i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		indices = append(indices, i)
	}
	return indices
}
