package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/config"
	"github.com/mnemos-ai/mnemos/internal/core/arbiter"
	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/driver"
)

type mockMatcher struct {
	exact      *model.MatchCandidate
	exactErr   error
	candidates []model.MatchCandidate
	lastScope  driver.Scope
	exactCalls int
	fuzzyCalls int
}

func (m *mockMatcher) FindExact(ctx context.Context, name string, scope driver.Scope) (*model.MatchCandidate, error) {
	m.exactCalls++
	m.lastScope = scope
	return m.exact, m.exactErr
}

func (m *mockMatcher) FindCandidates(ctx context.Context, text string, scope driver.Scope) []model.MatchCandidate {
	m.fuzzyCalls++
	return m.candidates
}

type mockArbiter struct {
	result   model.ArbitrationResult
	err      error
	calls    int
	lastPair arbiter.Pair
}

func (m *mockArbiter) DecideDuplicate(ctx context.Context, pair arbiter.Pair) (model.ArbitrationResult, error) {
	m.calls++
	m.lastPair = pair
	return m.result, m.err
}

func (m *mockArbiter) SynthesizeContext(ctx context.Context, input arbiter.SynthesisInput) (model.SynthesisResult, error) {
	return model.SynthesisResult{}, errors.New("not used in dedup tests")
}

func newTestEngine(matcher *mockMatcher, arb *mockArbiter) *Engine {
	return NewEngine(matcher, arb, config.Default().Resolution, zap.NewNop())
}

func TestExactMatchMergesWithoutArbiter(t *testing.T) {
	matcher := &mockMatcher{
		exact: &model.MatchCandidate{ID: "task-1", Name: "настроить ci/cd", Similarity: 1.0, Source: model.MatchExact},
	}
	arb := &mockArbiter{}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{
		Name:    "Настроить CI/CD",
		OwnerID: "owner-111",
	})

	require.NoError(t, err)
	assert.Equal(t, model.ActionMerge, decision.Action)
	assert.Equal(t, "task-1", decision.ExistingID)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Equal(t, "exact name match", decision.Reason)
	assert.Equal(t, 0, arb.calls)
	assert.Equal(t, 0, matcher.fuzzyCalls)
	assert.Equal(t, "owner-111", matcher.lastScope.OwnerID)
}

func TestNoCandidatesCreates(t *testing.T) {
	matcher := &mockMatcher{}
	arb := &mockArbiter{}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Новая задача", OwnerID: "o1"})

	require.NoError(t, err)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Empty(t, decision.ExistingID)
	assert.Contains(t, decision.Reason, "no similar tasks found")
	assert.Equal(t, 0, arb.calls)
}

func TestArbiterNotDuplicateCreates(t *testing.T) {
	matcher := &mockMatcher{
		candidates: []model.MatchCandidate{{ID: "task-9", Name: "похожая задача", Similarity: 0.8, Source: model.MatchSemantic}},
	}
	arb := &mockArbiter{result: model.ArbitrationResult{IsDuplicate: false, Confidence: 0.95, Reason: "different scope"}}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Задача", OwnerID: "o1"})

	require.NoError(t, err)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Empty(t, decision.ExistingID)
	assert.Contains(t, decision.Reason, "not duplicate")
	assert.Equal(t, 1, arb.calls)
	assert.Equal(t, "task-9", arb.lastPair.ExistingID)
}

func TestConfidenceBands(t *testing.T) {
	cases := []struct {
		confidence float64
		action     model.Action
		existingID string
	}{
		{0.95, model.ActionMerge, "task-5"},
		{0.9, model.ActionMerge, "task-5"},
		{0.8999, model.ActionPendingApproval, "task-5"},
		{0.82, model.ActionPendingApproval, "task-5"},
		{0.7, model.ActionPendingApproval, "task-5"},
		{0.6999, model.ActionCreate, ""},
		{0.1, model.ActionCreate, ""},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("confidence=%v", tc.confidence), func(t *testing.T) {
			matcher := &mockMatcher{
				candidates: []model.MatchCandidate{{ID: "task-5", Name: "задача", Similarity: 0.85, Source: model.MatchSemantic}},
			}
			arb := &mockArbiter{result: model.ArbitrationResult{
				IsDuplicate: true,
				Confidence:  tc.confidence,
				MergeIntoID: "task-5",
			}}
			engine := newTestEngine(matcher, arb)

			decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Задача", OwnerID: "o1"})

			require.NoError(t, err)
			assert.Equal(t, tc.action, decision.Action)
			assert.Equal(t, tc.existingID, decision.ExistingID)
			if tc.action != model.ActionCreate {
				assert.Equal(t, tc.confidence, decision.Confidence)
			}
		})
	}
}

func TestHallucinatedMergeTargetCreates(t *testing.T) {
	matcher := &mockMatcher{
		candidates: []model.MatchCandidate{{ID: "task-5", Name: "задача", Similarity: 0.85, Source: model.MatchSemantic}},
	}
	arb := &mockArbiter{result: model.ArbitrationResult{
		IsDuplicate: true,
		Confidence:  0.95,
		MergeIntoID: "task-i-made-up",
	}}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Задача", OwnerID: "o1"})

	require.NoError(t, err)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Empty(t, decision.ExistingID)
	assert.NotContains(t, decision.ExistingID, "task-i-made-up")
}

func TestMissingMergeTargetCreates(t *testing.T) {
	matcher := &mockMatcher{
		candidates: []model.MatchCandidate{{ID: "task-5", Name: "задача", Similarity: 0.85, Source: model.MatchSemantic}},
	}
	arb := &mockArbiter{result: model.ArbitrationResult{IsDuplicate: true, Confidence: 0.95}}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Задача", OwnerID: "o1"})

	require.NoError(t, err)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Empty(t, decision.ExistingID)
	assert.Contains(t, decision.Reason, "no merge target")
}

func TestMergeTargetFromNonArbitratedCandidateCreates(t *testing.T) {
	// task-other was retrieved but never shown to the arbiter; a verdict
	// naming it must not merge.
	matcher := &mockMatcher{
		candidates: []model.MatchCandidate{
			{ID: "task-top", Name: "задача", Similarity: 0.9, Source: model.MatchSemantic},
			{ID: "task-other", Name: "другая задача", Similarity: 0.8, Source: model.MatchSemantic},
		},
	}
	arb := &mockArbiter{result: model.ArbitrationResult{
		IsDuplicate: true,
		Confidence:  0.95,
		MergeIntoID: "task-other",
	}}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Задача", OwnerID: "o1"})

	require.NoError(t, err)
	assert.Equal(t, "task-top", arb.lastPair.ExistingID)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Empty(t, decision.ExistingID)
}

func TestArbiterFailureCreates(t *testing.T) {
	matcher := &mockMatcher{
		candidates: []model.MatchCandidate{{ID: "task-5", Name: "задача", Similarity: 0.85, Source: model.MatchSemantic}},
	}
	arb := &mockArbiter{err: errors.New("provider timeout")}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Задача", OwnerID: "o1"})

	require.NoError(t, err)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Contains(t, decision.Reason, "arbiter unavailable")
}

func TestExactStageErrorPropagates(t *testing.T) {
	matcher := &mockMatcher{exactErr: errors.New("bolt connection refused")}
	engine := newTestEngine(matcher, &mockArbiter{})

	_, err := engine.CheckTask(context.Background(), model.TaskCandidate{Name: "Задача", OwnerID: "o1"})

	assert.Error(t, err)
}

func TestCommitmentWithoutEntitySkipsMatching(t *testing.T) {
	matcher := &mockMatcher{
		exact: &model.MatchCandidate{ID: "c-1", Similarity: 1.0, Source: model.MatchExact},
	}
	arb := &mockArbiter{}
	engine := newTestEngine(matcher, arb)

	decision, err := engine.CheckCommitment(context.Background(), model.CommitmentCandidate{What: "прислать отчет"})

	require.NoError(t, err)
	assert.Equal(t, model.ActionCreate, decision.Action)
	assert.Equal(t, "no entityId", decision.Reason)
	assert.Equal(t, 0, matcher.exactCalls)
	assert.Equal(t, 0, arb.calls)
}

func TestEntityScopedByType(t *testing.T) {
	matcher := &mockMatcher{
		exact: &model.MatchCandidate{ID: "org-1", Name: "меркурий", Similarity: 1.0, Source: model.MatchExact},
	}
	engine := newTestEngine(matcher, &mockArbiter{})

	_, err := engine.CheckEntity(context.Background(), model.EntityCandidate{
		Name: "Меркурий",
		Type: "organization",
	})

	require.NoError(t, err)
	assert.Equal(t, driver.KindEntity, matcher.lastScope.Kind)
	assert.Equal(t, "organization", matcher.lastScope.Type)
}

func TestCommitmentScopedByEntity(t *testing.T) {
	matcher := &mockMatcher{}
	engine := newTestEngine(matcher, &mockArbiter{})

	_, err := engine.CheckCommitment(context.Background(), model.CommitmentCandidate{
		What:     "прислать отчет",
		EntityID: "entity-7",
	})

	require.NoError(t, err)
	assert.Equal(t, "entity-7", matcher.lastScope.EntityID)
	assert.Equal(t, driver.KindCommitment, matcher.lastScope.Kind)
}
