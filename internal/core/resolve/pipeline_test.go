package resolve

// End-to-end coverage of the pipeline with a real retriever in front of
// the engine; only storage and the arbiter are mocked.

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/config"
	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/core/retrieval"
	"github.com/mnemos-ai/mnemos/internal/driver"
)

type pipelineStore struct {
	exactByName   map[string]*model.Record
	fuzzy         []model.Record
	semantic      []model.SearchHit
	semanticCalls int
}

func (s *pipelineStore) ExactLookup(ctx context.Context, normalizedName string, scope driver.Scope) (*model.Record, error) {
	return s.exactByName[normalizedName], nil
}

func (s *pipelineStore) FuzzyLookup(ctx context.Context, rawName string, scope driver.Scope, limit int) ([]model.Record, error) {
	return s.fuzzy, nil
}

func (s *pipelineStore) SemanticSearch(ctx context.Context, vector []float32, scope driver.Scope, limit int) ([]model.SearchHit, error) {
	s.semanticCalls++
	return s.semantic, nil
}

type failingEmbedder struct{ err error }

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestPipelineExactMatchAfterNormalization(t *testing.T) {
	store := &pipelineStore{
		exactByName: map[string]*model.Record{
			"настроить ci/cd": {ID: "task-77", Name: "настроить ci/cd"},
		},
	}
	retriever := retrieval.New(store, fixedEmbedder{}, nil, 5, time.Second, zap.NewNop())
	arb := &mockArbiter{}
	engine := NewEngine(retriever, arb, config.Default().Resolution, zap.NewNop())

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{
		Name:    "Настроить CI/CD",
		OwnerID: "owner-111",
	})

	require.NoError(t, err)
	assert.Equal(t, model.ActionMerge, decision.Action)
	assert.Equal(t, "task-77", decision.ExistingID)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Equal(t, 0, arb.calls)
}

func TestPipelineSemanticCandidateGoesToApproval(t *testing.T) {
	store := &pipelineStore{
		semantic: []model.SearchHit{
			{ID: "task-88", Name: "настройка ci/cd", Similarity: 0.85},
		},
	}
	retriever := retrieval.New(store, fixedEmbedder{}, nil, 5, time.Second, zap.NewNop())
	arb := &mockArbiter{result: model.ArbitrationResult{
		IsDuplicate: true,
		Confidence:  0.82,
		MergeIntoID: "task-88",
		Reason:      "same task, different wording",
	}}
	engine := NewEngine(retriever, arb, config.Default().Resolution, zap.NewNop())

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{
		Name:    "Настроить CI/CD",
		OwnerID: "owner-111",
	})

	require.NoError(t, err)
	assert.Equal(t, model.ActionPendingApproval, decision.Action)
	assert.Equal(t, "task-88", decision.ExistingID)
	assert.Equal(t, 0.82, decision.Confidence)
	assert.Equal(t, 1, arb.calls)
}

func TestPipelineRateLimitedEmbedderCreates(t *testing.T) {
	store := &pipelineStore{}
	retriever := retrieval.New(store, &failingEmbedder{err: errors.New("429 rate limit")}, nil, 5, time.Second, zap.NewNop())
	arb := &mockArbiter{}
	engine := NewEngine(retriever, arb, config.Default().Resolution, zap.NewNop())

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{
		Name:    "Настроить CI/CD",
		OwnerID: "owner-111",
	})

	require.NoError(t, err)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Equal(t, 0, store.semanticCalls)
	assert.Equal(t, 0, arb.calls)
}
