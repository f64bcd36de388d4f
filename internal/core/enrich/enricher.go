// Package enrich links abstract events ("I'll start the task", no task
// named) to concrete context from message history and prior events.
// Enrichment is best-effort by contract: every failure inside converts
// to a successful result flagged needs_context, never to an error the
// caller has to handle.
package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mnemos-ai/mnemos/internal/core/arbiter"
	"github.com/mnemos-ai/mnemos/internal/core/model"
)

const retrievalLimit = 10

// History is the storage surface enrichment retrieves context from.
type History interface {
	RecentMessages(ctx context.Context, entityID string, keywords []string, since time.Time, limit int) ([]model.Message, error)
	RecentEvents(ctx context.Context, entityID, excludeEventID string, since time.Time, limit int) ([]model.Event, error)
}

type Enricher struct {
	history          History
	arbiter          arbiter.Arbiter
	window           time.Duration
	contextThreshold float64
	now              func() time.Time
	log              *zap.Logger
}

func NewEnricher(history History, arb arbiter.Arbiter, window time.Duration, contextThreshold float64, log *zap.Logger) *Enricher {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &Enricher{
		history:          history,
		arbiter:          arb,
		window:           window,
		contextThreshold: contextThreshold,
		now:              time.Now,
		log:              log,
	}
}

// Enrich computes context for one abstract event. The result always
// carries the keyword list and retrieved IDs for audit, whether or not
// anything was linked.
func (e *Enricher) Enrich(ctx context.Context, event model.AbstractEvent) model.EnrichmentResult {
	keywords := ExtractKeywords(event)
	since := e.now().Add(-e.window)

	// The two retrievals are read-only and independent; run them
	// concurrently. A failing side contributes an empty set.
	var (
		messages []model.Message
		events   []model.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := e.history.RecentMessages(gctx, event.EntityID, keywords, since, retrievalLimit)
		if err != nil {
			e.log.Warn("message retrieval degraded",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return nil
		}
		messages = found
		return nil
	})
	g.Go(func() error {
		found, err := e.history.RecentEvents(gctx, event.EntityID, event.ID, since, retrievalLimit)
		if err != nil {
			e.log.Warn("event retrieval degraded",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return nil
		}
		events = found
		return nil
	})
	_ = g.Wait()

	data := model.EnrichmentData{
		Keywords:          keywords,
		RelatedMessageIDs: messageIDs(messages),
		CandidateEventIDs: eventIDs(events),
		EnrichmentSuccess: true,
		EnrichedAt:        e.now().UTC(),
	}

	// Nothing retrieved: nothing to synthesize, no LLM call.
	if len(messages) == 0 && len(events) == 0 {
		data.EnrichmentFailureReason = "no context found in history"
		return model.EnrichmentResult{
			Success:      true,
			NeedsContext: true,
			Data:         data,
		}
	}

	synth, err := e.arbiter.SynthesizeContext(ctx, arbiter.SynthesisInput{
		Event:           event,
		Messages:        messages,
		CandidateEvents: events,
	})
	if err != nil {
		e.log.Warn("context synthesis failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		data.EnrichmentFailureReason = err.Error()
		return model.EnrichmentResult{
			Success:      true,
			NeedsContext: true,
			Data:         data,
		}
	}

	// Anti-hallucination: a linked event must be one of the candidates
	// the synthesizer was shown.
	linkedID := synth.LinkedEventID
	if linkedID != "" && !containsID(data.CandidateEventIDs, linkedID) {
		e.log.Warn("synthesizer referenced unknown event, discarding link",
			zap.String("event_id", event.ID),
			zap.String("linked_event_id", linkedID))
		linkedID = ""
	}

	data.Synthesis = synth.Synthesis
	return model.EnrichmentResult{
		Success:       true,
		LinkedEventID: linkedID,
		NeedsContext:  !synth.ContextFound && synth.Confidence < e.contextThreshold,
		Data:          data,
	}
}

func messageIDs(msgs []model.Message) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func eventIDs(events []model.Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
