// Package arbiter wraps the LLM behind the two narrow judgments the
// resolution engine needs: a single-pair duplicate verdict and an
// abstract-event context synthesis. Prompt text comes from config with
// compiled-in defaults; output is parsed as JSON and normalized before
// any policy sees it.
package arbiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mnemos-ai/mnemos/internal/config"
	"github.com/mnemos-ai/mnemos/internal/core/common"
	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/llm"
)

// Pair is one new-item/existing-item judgment request. ExistingID must
// be a real stored ID; the policy layer guarantees that.
type Pair struct {
	NewItem      string
	ExistingID   string
	ExistingItem string
	Context      string
}

type SynthesisInput struct {
	Event           model.AbstractEvent
	Messages        []model.Message
	CandidateEvents []model.Event
}

type Arbiter interface {
	DecideDuplicate(ctx context.Context, pair Pair) (model.ArbitrationResult, error)
	SynthesizeContext(ctx context.Context, input SynthesisInput) (model.SynthesisResult, error)
}

const defaultDuplicatePrompt = `You are deciding whether a newly extracted item duplicates an existing record.

<NEW ITEM>
%s
</NEW ITEM>

<EXISTING ITEM>
ID: %s
%s
</EXISTING ITEM>

<CONTEXT>
%s
</CONTEXT>

Instructions:
Judge whether the new item refers to the same real-world thing as the existing item.
Different phrasings of the same task, person or commitment are duplicates; merely related items are not.
Return a JSON object:
{"is_duplicate": bool, "confidence": float between 0 and 1, "merge_into_id": "the existing item's ID if duplicate", "reason": "one sentence"}`

const defaultSynthesisPrompt = `An event was extracted from a chat without enough concrete detail to know what it refers to.

<EVENT>
Quote: %s
Keywords: %s
</EVENT>

<RECENT MESSAGES>
%s
</RECENT MESSAGES>

<CANDIDATE EVENTS>
%s
</CANDIDATE EVENTS>

Instructions:
Determine what the event refers to, using only the materials above.
If it matches one of the candidate events, set linked_event_id to that event's ID; otherwise leave it empty.
Return a JSON object:
{"context_found": bool, "linked_event_id": "", "synthesis": "what the event refers to, one or two sentences", "confidence": float between 0 and 1}`

// LLMArbiter implements Arbiter over a completion client.
type LLMArbiter struct {
	llm     llm.LLMClient
	prompts config.ArbiterPrompts
	timeout time.Duration
}

func NewLLMArbiter(client llm.LLMClient, prompts config.ArbiterPrompts, timeout time.Duration) *LLMArbiter {
	return &LLMArbiter{llm: client, prompts: prompts, timeout: timeout}
}

func (a *LLMArbiter) DecideDuplicate(ctx context.Context, pair Pair) (model.ArbitrationResult, error) {
	template := a.prompts.Duplicate
	if template == "" {
		template = defaultDuplicatePrompt
	}
	prompt := fmt.Sprintf(template, pair.NewItem, pair.ExistingID, pair.ExistingItem, pair.Context)

	response, err := a.generate(ctx, prompt)
	if err != nil {
		return model.ArbitrationResult{}, fmt.Errorf("duplicate judgment failed: %w", err)
	}

	result, err := common.ParseJSON[model.ArbitrationResult](response)
	if err != nil {
		return model.ArbitrationResult{}, fmt.Errorf("failed to parse duplicate judgment: %w", err)
	}
	result.Confidence = clamp01(result.Confidence)
	return result, nil
}

func (a *LLMArbiter) SynthesizeContext(ctx context.Context, input SynthesisInput) (model.SynthesisResult, error) {
	template := a.prompts.Synthesis
	if template == "" {
		template = defaultSynthesisPrompt
	}
	prompt := fmt.Sprintf(template,
		input.Event.SourceQuote,
		strings.Join(input.Event.Keywords, ", "),
		serializeMessages(input.Messages),
		serializeEvents(input.CandidateEvents))

	response, err := a.generate(ctx, prompt)
	if err != nil {
		return model.SynthesisResult{}, fmt.Errorf("context synthesis failed: %w", err)
	}

	result, err := common.ParseJSON[model.SynthesisResult](response)
	if err != nil {
		return model.SynthesisResult{}, fmt.Errorf("failed to parse synthesis: %w", err)
	}
	result.Confidence = clamp01(result.Confidence)
	return result, nil
}

func (a *LLMArbiter) generate(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.llm.Generate(ctx, prompt)
}

func serializeMessages(msgs []model.Message) string {
	if len(msgs) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "- [%s] %s\n", m.SentAt.Format("2006-01-02 15:04"), m.Text)
	}
	return b.String()
}

func serializeEvents(events []model.Event) string {
	if len(events) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- ID: %s, %s\n", e.ID, e.Description)
	}
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
