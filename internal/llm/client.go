package llm

import (
	"context"
)

// LLMClient is the single-prompt completion surface the engine needs.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbedderClient turns text into a fixed-length vector. It is an optional
// capability: a nil EmbedderClient means the provider has none, and
// retrieval degrades to deterministic matching.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RerankerClient reorders documents by relevance to a query.
type RerankerClient interface {
	Rank(ctx context.Context, query string, documents []string) ([]int, error)
}
