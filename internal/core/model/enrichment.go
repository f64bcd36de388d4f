package model

import "time"

// SynthesisResult is the parsed output of the LLM context synthesizer.
type SynthesisResult struct {
	ContextFound  bool    `json:"context_found"`
	LinkedEventID string  `json:"linked_event_id,omitempty"`
	Synthesis     string  `json:"synthesis,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// EnrichmentData is the audit payload of a context-enrichment pass. It is
// written onto the abstract event's record by the caller and carries the
// retrieval trail even when nothing was linked.
type EnrichmentData struct {
	Keywords                []string  `json:"keywords"`
	RelatedMessageIDs       []string  `json:"related_message_ids"`
	CandidateEventIDs       []string  `json:"candidate_event_ids"`
	Synthesis               string    `json:"synthesis,omitempty"`
	EnrichmentSuccess       bool      `json:"enrichment_success"`
	EnrichmentFailureReason string    `json:"enrichment_failure_reason,omitempty"`
	EnrichedAt              time.Time `json:"enriched_at"`
}

// EnrichmentResult is computed once per abstract event; re-applying it
// overwrites any prior enrichment data on the event.
type EnrichmentResult struct {
	Success       bool           `json:"success"`
	LinkedEventID string         `json:"linked_event_id,omitempty"`
	NeedsContext  bool           `json:"needs_context"`
	Data          EnrichmentData `json:"enrichment_data"`
}
