// Package resolve implements the duplicate/create decision pipeline for
// newly extracted tasks, entities and commitments. Deterministic matching
// stages feed an LLM arbiter, and fixed confidence thresholds map the
// arbiter's verdict to CREATE, MERGE or PENDING_APPROVAL.
//
// The engine only decides; callers perform the actual write. Two
// concurrent requests for the same near-duplicate can therefore both
// decide CREATE. That race is accepted: the duplicate pair is caught on
// the next pass, and serializing creations across an LLM round trip
// would cost far more than the occasional reconciliation.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/config"
	"github.com/mnemos-ai/mnemos/internal/core/arbiter"
	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/driver"
)

// Matcher is the candidate-retrieval surface the engine consumes.
type Matcher interface {
	FindExact(ctx context.Context, name string, scope driver.Scope) (*model.MatchCandidate, error)
	FindCandidates(ctx context.Context, text string, scope driver.Scope) []model.MatchCandidate
}

type Engine struct {
	matcher Matcher
	arbiter arbiter.Arbiter
	cfg     config.ResolutionConfig
	log     *zap.Logger
}

func NewEngine(matcher Matcher, arb arbiter.Arbiter, cfg config.ResolutionConfig, log *zap.Logger) *Engine {
	return &Engine{matcher: matcher, arbiter: arb, cfg: cfg, log: log}
}

// CheckTask decides whether a new task duplicates one of the owner's
// existing tasks.
func (e *Engine) CheckTask(ctx context.Context, c model.TaskCandidate) (model.Decision, error) {
	scope := driver.Scope{Kind: driver.KindTask, OwnerID: c.OwnerID}

	var extra strings.Builder
	if c.ProjectName != "" {
		fmt.Fprintf(&extra, "Project: %s", c.ProjectName)
	}
	return e.resolve(ctx, c.Name, extra.String(), scope, "tasks")
}

// CheckEntity decides whether a new person/organization duplicates a
// stored entity of the same type.
func (e *Engine) CheckEntity(ctx context.Context, c model.EntityCandidate) (model.Decision, error) {
	scope := driver.Scope{Kind: driver.KindEntity, Type: c.Type}

	var extra strings.Builder
	fmt.Fprintf(&extra, "Entity type: %s", c.Type)
	if c.Context != "" {
		fmt.Fprintf(&extra, "\n%s", c.Context)
	}
	return e.resolve(ctx, c.Name, extra.String(), scope, "entities")
}

// CheckCommitment decides whether a new commitment duplicates an existing
// one for the same entity. A commitment without an entity association
// cannot be deduplicated at all: matching it against everyone's
// commitments would produce false merges, so it creates immediately.
func (e *Engine) CheckCommitment(ctx context.Context, c model.CommitmentCandidate) (model.Decision, error) {
	if c.EntityID == "" {
		return model.Decision{
			Action: model.ActionCreate,
			Reason: "no entityId",
		}, nil
	}
	scope := driver.Scope{Kind: driver.KindCommitment, EntityID: c.EntityID}

	var extra strings.Builder
	if c.ActivityContext != "" {
		fmt.Fprintf(&extra, "Activity: %s", c.ActivityContext)
	}
	return e.resolve(ctx, c.What, extra.String(), scope, "commitments")
}

// resolve is the shared state machine. Terminal states: CREATE, MERGE,
// PENDING_APPROVAL.
func (e *Engine) resolve(ctx context.Context, name, extraContext string, scope driver.Scope, noun string) (model.Decision, error) {
	// Stage 1: exact normalized-name match, authoritative.
	exact, err := e.matcher.FindExact(ctx, name, scope)
	if err != nil {
		return model.Decision{}, fmt.Errorf("exact match stage failed: %w", err)
	}
	if exact != nil {
		e.log.Debug("exact match",
			zap.String("name", name),
			zap.String("existing_id", exact.ID))
		return model.Decision{
			Action:     model.ActionMerge,
			ExistingID: exact.ID,
			Confidence: 1.0,
			Reason:     "exact name match",
		}, nil
	}

	// Stage 2: fuzzy/semantic candidates. None means genuinely new.
	candidates := e.matcher.FindCandidates(ctx, name, scope)
	if len(candidates) == 0 {
		return model.Decision{
			Action: model.ActionCreate,
			Reason: fmt.Sprintf("no similar %s found", noun),
		}, nil
	}

	// Stage 3: LLM arbitration against the top candidate.
	top := candidates[0]
	result, err := e.arbiter.DecideDuplicate(ctx, arbiter.Pair{
		NewItem:      name,
		ExistingID:   top.ID,
		ExistingItem: describeCandidate(top),
		Context:      extraContext,
	})
	if err != nil {
		// Safe default: a created duplicate gets merged later; a wrong
		// merge loses data now.
		e.log.Warn("arbiter unavailable, defaulting to create",
			zap.String("name", name),
			zap.Error(err))
		return model.Decision{
			Action: model.ActionCreate,
			Reason: "arbiter unavailable, defaulting to create",
		}, nil
	}

	if !result.IsDuplicate {
		return model.Decision{
			Action:     model.ActionCreate,
			Confidence: result.Confidence,
			Reason:     fmt.Sprintf("arbiter judged not duplicate: %s", result.Reason),
		}, nil
	}

	// Low-confidence duplicate signals are noise, not actioned.
	if result.Confidence < e.cfg.ApprovalThreshold {
		return model.Decision{
			Action:     model.ActionCreate,
			Confidence: result.Confidence,
			Reason:     fmt.Sprintf("duplicate signal below threshold (%.2f): %s", result.Confidence, result.Reason),
		}, nil
	}

	// Anti-hallucination: the merge target must be exactly the ID shown
	// to the arbiter. A retrieved-but-not-arbitrated candidate's ID is
	// just as unverified as an invented one, and a verdict with no
	// target never merges.
	if result.MergeIntoID == "" {
		e.log.Warn("arbiter returned no merge target, defaulting to create",
			zap.String("name", name))
		return model.Decision{
			Action:     model.ActionCreate,
			Confidence: result.Confidence,
			Reason:     "arbiter returned no merge target, defaulting to create",
		}, nil
	}
	if result.MergeIntoID != top.ID {
		e.log.Warn("arbiter returned unknown merge target, defaulting to create",
			zap.String("name", name),
			zap.String("merge_into_id", result.MergeIntoID))
		return model.Decision{
			Action:     model.ActionCreate,
			Confidence: result.Confidence,
			Reason:     "arbiter referenced an unknown record, defaulting to create",
		}, nil
	}

	action := model.ActionPendingApproval
	if result.Confidence >= e.cfg.MergeThreshold {
		action = model.ActionMerge
	}
	return model.Decision{
		Action:     action,
		ExistingID: result.MergeIntoID,
		Confidence: result.Confidence,
		Reason:     result.Reason,
	}, nil
}

func describeCandidate(c model.MatchCandidate) string {
	if c.Summary == "" {
		return c.Name
	}
	return fmt.Sprintf("%s\n%s", c.Name, c.Summary)
}
