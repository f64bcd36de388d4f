// Package inference derives relations that committed facts imply but
// nothing has linked yet: a "company" fact about a person implies an
// employment relation to that organization. It is the only part of the
// engine that writes to storage, and only outside dry-run mode.
package inference

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/core/normalize"
	"github.com/mnemos-ai/mnemos/internal/driver"
)

const (
	// ProvenanceTag marks relations this scanner created.
	ProvenanceTag = "inferred-from-fact"

	factCategory      = "company"
	relationType      = "works_at"
	defaultConfidence = 0.7
	fallbackLimit     = 5
)

// Store is the storage surface the scanner needs.
type Store interface {
	UnlinkedFacts(ctx context.Context, category, relationType string, since time.Time, limit int) ([]model.Fact, error)
	ExactLookup(ctx context.Context, normalizedName string, scope driver.Scope) (*model.Record, error)
	FuzzyLookup(ctx context.Context, rawName string, scope driver.Scope, limit int) ([]model.Record, error)
	RelationExists(ctx context.Context, entityID, organizationID, relationType string) (bool, error)
	CreateRelation(ctx context.Context, rel model.InferredRelation, provenance string) (string, error)
}

type Options struct {
	Since  time.Time
	Limit  int
	DryRun bool
}

type Scanner struct {
	store     Store
	threshold float64
	log       *zap.Logger
}

func NewScanner(store Store, similarityThreshold float64, log *zap.Logger) *Scanner {
	if similarityThreshold <= 0 {
		similarityThreshold = defaultConfidence
	}
	return &Scanner{store: store, threshold: similarityThreshold, log: log}
}

// Scan walks company facts without a valid employment relation, oldest
// first, and creates (or, in dry-run, records) the implied relation for
// each fact whose organization can be matched. A failing fact is
// reported and skipped; the scan finishes regardless.
func (s *Scanner) Scan(ctx context.Context, opts Options) (model.ScanReport, error) {
	report := model.ScanReport{DryRun: opts.DryRun}

	facts, err := s.store.UnlinkedFacts(ctx, factCategory, relationType, opts.Since, opts.Limit)
	if err != nil {
		return report, err
	}

	for _, fact := range facts {
		report.Processed++

		rel, err := s.inferRelation(ctx, fact)
		if err != nil {
			report.Errors = append(report.Errors, model.ScanError{
				FactID: fact.ID,
				Error:  err.Error(),
			})
			continue
		}
		if rel == nil {
			report.Skipped++
			continue
		}

		if !opts.DryRun {
			if _, err := s.store.CreateRelation(ctx, *rel, ProvenanceTag); err != nil {
				report.Errors = append(report.Errors, model.ScanError{
					FactID: fact.ID,
					Error:  err.Error(),
				})
				continue
			}
		}
		report.Created++
		report.Relations = append(report.Relations, *rel)
		s.log.Info("inferred relation",
			zap.String("fact_id", fact.ID),
			zap.String("entity_id", rel.EntityID),
			zap.String("organization", rel.OrganizationName),
			zap.Bool("dry_run", opts.DryRun))
	}

	return report, nil
}

// inferRelation resolves the fact's organization and builds the implied
// relation, or returns nil when the fact should be skipped.
func (s *Scanner) inferRelation(ctx context.Context, fact model.Fact) (*model.InferredRelation, error) {
	norm := normalize.Normalize(fact.Value)
	if norm == "" {
		return nil, nil
	}

	org, err := s.findOrganization(ctx, norm)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, nil
	}

	exists, err := s.store.RelationExists(ctx, fact.EntityID, org.ID, relationType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	confidence := fact.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}
	return &model.InferredRelation{
		EntityID:         fact.EntityID,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		RelationType:     relationType,
		Confidence:       confidence,
	}, nil
}

// findOrganization tries the exact normalized name, then falls back to a
// search on the first significant word. Either way the winner must clear
// the similarity threshold against the fact's normalized value.
func (s *Scanner) findOrganization(ctx context.Context, normalizedName string) (*model.Record, error) {
	scope := driver.Scope{Kind: driver.KindOrganization}

	if rec, err := s.store.ExactLookup(ctx, normalizedName, scope); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	word := normalize.FirstSignificantWord(normalizedName)
	if word == "" {
		return nil, nil
	}
	records, err := s.store.FuzzyLookup(ctx, word, scope, fallbackLimit)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if normalize.Similarity(normalizedName, normalize.Normalize(rec.Name)) > s.threshold {
			return &rec, nil
		}
	}
	return nil, nil
}
