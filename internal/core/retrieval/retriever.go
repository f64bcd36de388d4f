// Package retrieval gathers duplicate candidates for a new item in two
// stages: an authoritative normalized-name exact lookup, then a merged
// substring + embedding search. The semantic stage is best-effort; when
// the embedder is missing or failing, retrieval degrades to the
// deterministic results instead of failing the request.
package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/core/normalize"
	"github.com/mnemos-ai/mnemos/internal/driver"
	"github.com/mnemos-ai/mnemos/internal/llm"
)

// Lookup is the storage surface the retriever needs.
type Lookup interface {
	ExactLookup(ctx context.Context, normalizedName string, scope driver.Scope) (*model.Record, error)
	FuzzyLookup(ctx context.Context, rawName string, scope driver.Scope, limit int) ([]model.Record, error)
	SemanticSearch(ctx context.Context, vector []float32, scope driver.Scope, limit int) ([]model.SearchHit, error)
}

type Retriever struct {
	store        Lookup
	embedder     llm.EmbedderClient // nil when the provider has no embedding capability
	reranker     llm.RerankerClient // optional tie-breaker for degraded mode
	limit        int
	embedTimeout time.Duration
	log          *zap.Logger
}

func New(store Lookup, embedder llm.EmbedderClient, reranker llm.RerankerClient, limit int, embedTimeout time.Duration, log *zap.Logger) *Retriever {
	if limit <= 0 {
		limit = 5
	}
	return &Retriever{
		store:        store,
		embedder:     embedder,
		reranker:     reranker,
		limit:        limit,
		embedTimeout: embedTimeout,
		log:          log,
	}
}

// FindExact looks up a record whose normalized stored name equals the
// candidate's normalized name. A hit is authoritative and skips all
// further stages. Storage failure here is the one retrieval error that
// propagates: without the exact stage no decision is safe.
func (r *Retriever) FindExact(ctx context.Context, name string, scope driver.Scope) (*model.MatchCandidate, error) {
	norm := normalize.Normalize(name)
	if norm == "" {
		return nil, nil
	}

	rec, err := r.store.ExactLookup(ctx, norm, scope)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return &model.MatchCandidate{
		ID:         rec.ID,
		Name:       rec.Name,
		Summary:    rec.Summary,
		Similarity: 1.0,
		Source:     model.MatchExact,
	}, nil
}

// FindCandidates merges substring hits and embedding neighbors into one
// ranked list, deduplicated by ID; substring hits rank at similarity 1.0
// ahead of embedding-ranked hits. Every failure inside degrades: the
// caller always gets whatever the surviving stages found.
func (r *Retriever) FindCandidates(ctx context.Context, text string, scope driver.Scope) []model.MatchCandidate {
	var candidates []model.MatchCandidate
	seen := make(map[string]bool)

	fuzzy, err := r.store.FuzzyLookup(ctx, text, scope, r.limit)
	if err != nil {
		r.log.Warn("fuzzy lookup degraded",
			zap.String("kind", string(scope.Kind)),
			zap.Error(err))
		fuzzy = nil
	}
	for _, rec := range fuzzy {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		candidates = append(candidates, model.MatchCandidate{
			ID:         rec.ID,
			Name:       rec.Name,
			Summary:    rec.Summary,
			Similarity: 1.0,
			Source:     model.MatchFuzzy,
		})
	}

	semanticOK := false
	if r.embedder != nil {
		if hits := r.semanticCandidates(ctx, text, scope); hits != nil {
			semanticOK = true
			for _, hit := range hits {
				if seen[hit.ID] {
					continue
				}
				seen[hit.ID] = true
				candidates = append(candidates, model.MatchCandidate{
					ID:         hit.ID,
					Name:       hit.Name,
					Summary:    hit.Description,
					Similarity: hit.Similarity,
					Source:     model.MatchSemantic,
				})
			}
		}
	}

	// Without vector scores all substring hits tie at 1.0; let the
	// reranker order them if one is wired.
	if !semanticOK && r.reranker != nil && len(candidates) > 1 {
		candidates = r.rerank(ctx, text, candidates)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}
	return candidates
}

// semanticCandidates returns nil when the embedding stage could not run.
func (r *Retriever) semanticCandidates(ctx context.Context, text string, scope driver.Scope) []model.SearchHit {
	embedCtx := ctx
	if r.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
	}

	vec, err := r.embedder.Embed(embedCtx, text)
	if err != nil {
		r.log.Warn("embedding unavailable, continuing with deterministic matches",
			zap.String("kind", string(scope.Kind)),
			zap.Error(err))
		return nil
	}

	hits, err := r.store.SemanticSearch(ctx, vec, scope, r.limit)
	if err != nil {
		r.log.Warn("semantic search degraded",
			zap.String("kind", string(scope.Kind)),
			zap.Error(err))
		return nil
	}
	return hits
}

func (r *Retriever) rerank(ctx context.Context, query string, candidates []model.MatchCandidate) []model.MatchCandidate {
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Name
	}
	indices, err := r.reranker.Rank(ctx, query, docs)
	if err != nil || len(indices) == 0 {
		return candidates
	}

	reordered := make([]model.MatchCandidate, 0, len(candidates))
	taken := make(map[int]bool)
	for _, i := range indices {
		if i < 0 || i >= len(candidates) || taken[i] {
			continue
		}
		taken[i] = true
		reordered = append(reordered, candidates[i])
	}
	for i, c := range candidates {
		if !taken[i] {
			reordered = append(reordered, c)
		}
	}
	return reordered
}
