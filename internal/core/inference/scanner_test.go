package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/driver"
)

type mockStore struct {
	facts    []model.Fact
	factsErr error

	exactByName map[string]*model.Record
	fuzzy       []model.Record
	fuzzyErr    error

	existing map[string]bool // "entityID/orgID" -> exists
	createErr error

	created      []model.InferredRelation
	provenances  []string
	lastFuzzyArg string
}

func (m *mockStore) UnlinkedFacts(ctx context.Context, category, relationType string, since time.Time, limit int) ([]model.Fact, error) {
	return m.facts, m.factsErr
}

func (m *mockStore) ExactLookup(ctx context.Context, normalizedName string, scope driver.Scope) (*model.Record, error) {
	return m.exactByName[normalizedName], nil
}

func (m *mockStore) FuzzyLookup(ctx context.Context, rawName string, scope driver.Scope, limit int) ([]model.Record, error) {
	m.lastFuzzyArg = rawName
	return m.fuzzy, m.fuzzyErr
}

func (m *mockStore) RelationExists(ctx context.Context, entityID, organizationID, relationType string) (bool, error) {
	return m.existing[entityID+"/"+organizationID], nil
}

func (m *mockStore) CreateRelation(ctx context.Context, rel model.InferredRelation, provenance string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, rel)
	m.provenances = append(m.provenances, provenance)
	return "rel-1", nil
}

func companyFact(id, entityID, value string, confidence float64) model.Fact {
	return model.Fact{
		ID:         id,
		EntityID:   entityID,
		Category:   "company",
		Value:      value,
		Confidence: confidence,
	}
}

func TestScanCreatesRelationOnExactOrgMatch(t *testing.T) {
	store := &mockStore{
		facts: []model.Fact{companyFact("f-1", "e-1", `ООО "Сбербанк"`, 0.9)},
		exactByName: map[string]*model.Record{
			"сбербанк": {ID: "org-1", Name: "Сбербанк"},
		},
	}
	s := NewScanner(store, 0.7, zap.NewNop())

	report, err := s.Scan(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Errors)
	require.Len(t, store.created, 1)
	assert.Equal(t, "e-1", store.created[0].EntityID)
	assert.Equal(t, "org-1", store.created[0].OrganizationID)
	assert.Equal(t, "works_at", store.created[0].RelationType)
	assert.Equal(t, 0.9, store.created[0].Confidence)
	assert.Equal(t, []string{ProvenanceTag}, store.provenances)
}

func TestScanFallsBackToFirstSignificantWord(t *testing.T) {
	store := &mockStore{
		facts: []model.Fact{companyFact("f-1", "e-1", "Рога и Копыта", 0)},
		fuzzy: []model.Record{
			{ID: "org-9", Name: "Рога и копыта"},
		},
	}
	s := NewScanner(store, 0.7, zap.NewNop())

	report, err := s.Scan(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, "рога", store.lastFuzzyArg)
	assert.Equal(t, 1, report.Created)
	// confidence defaults when the fact carries none
	assert.Equal(t, 0.7, store.created[0].Confidence)
}

func TestScanRejectsLowSimilarityFallback(t *testing.T) {
	store := &mockStore{
		facts: []model.Fact{companyFact("f-1", "e-1", "Рога и Копыта", 0.8)},
		fuzzy: []model.Record{
			{ID: "org-9", Name: "Рога-Автосервис Премиум"},
		},
	}
	s := NewScanner(store, 0.7, zap.NewNop())

	report, err := s.Scan(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Created)
	assert.Empty(t, store.created)
}

func TestScanSkipsExistingRelation(t *testing.T) {
	store := &mockStore{
		facts: []model.Fact{companyFact("f-1", "e-1", "Сбербанк", 0.8)},
		exactByName: map[string]*model.Record{
			"сбербанк": {ID: "org-1", Name: "Сбербанк"},
		},
		existing: map[string]bool{"e-1/org-1": true},
	}
	s := NewScanner(store, 0.7, zap.NewNop())

	report, err := s.Scan(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, store.created)
}

func TestScanDryRunRecordsWithoutWriting(t *testing.T) {
	store := &mockStore{
		facts: []model.Fact{companyFact("f-1", "e-1", "Сбербанк", 0.8)},
		exactByName: map[string]*model.Record{
			"сбербанк": {ID: "org-1", Name: "Сбербанк"},
		},
	}
	s := NewScanner(store, 0.7, zap.NewNop())

	report, err := s.Scan(context.Background(), Options{DryRun: true})

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Relations, 1)
	assert.Equal(t, "org-1", report.Relations[0].OrganizationID)
	assert.Empty(t, store.created)
}

func TestScanAttributesErrorsAndContinues(t *testing.T) {
	store := &mockStore{
		facts: []model.Fact{
			companyFact("f-bad", "e-1", "Рога и Копыта", 0.8),
			companyFact("f-good", "e-2", "Сбербанк", 0.8),
		},
		fuzzyErr: errors.New("query timeout"),
		exactByName: map[string]*model.Record{
			"сбербанк": {ID: "org-1", Name: "Сбербанк"},
		},
	}
	s := NewScanner(store, 0.7, zap.NewNop())

	report, err := s.Scan(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "f-bad", report.Errors[0].FactID)
	assert.Contains(t, report.Errors[0].Error, "query timeout")
}

func TestScanEmptyFactValueSkipped(t *testing.T) {
	store := &mockStore{
		facts: []model.Fact{companyFact("f-1", "e-1", `ООО ""`, 0.8)},
	}
	s := NewScanner(store, 0.7, zap.NewNop())

	report, err := s.Scan(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}

func TestScanQueryFailurePropagates(t *testing.T) {
	store := &mockStore{factsErr: errors.New("bolt connection refused")}
	s := NewScanner(store, 0.7, zap.NewNop())

	_, err := s.Scan(context.Background(), Options{})

	assert.Error(t, err)
}
