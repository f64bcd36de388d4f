package model

// Candidates are the newly extracted items awaiting a duplicate/create
// decision. They are inputs to the resolution engine and are never
// persisted by the engine itself.

type TaskCandidate struct {
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id"`
	ProjectName string `json:"project_name,omitempty"`
}

type EntityCandidate struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Context string `json:"context,omitempty"`
}

type CommitmentCandidate struct {
	What            string `json:"what"`
	EntityID        string `json:"entity_id,omitempty"`
	ActivityContext string `json:"activity_context,omitempty"`
}

// AbstractEvent is an event extracted without enough concrete detail to
// link on its own ("I'll start the task" with no task named).
type AbstractEvent struct {
	ID          string   `json:"id"`
	Keywords    []string `json:"keywords,omitempty"`
	SourceQuote string   `json:"source_quote"`
	EntityID    string   `json:"entity_id,omitempty"`
}

type MatchSource string

const (
	MatchExact    MatchSource = "exact"
	MatchFuzzy    MatchSource = "fuzzy"
	MatchSemantic MatchSource = "semantic"
)

// MatchCandidate is a stored record considered as a possible duplicate.
// Lists of these are produced fresh per request and never cached across
// requests.
type MatchCandidate struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Summary    string      `json:"summary,omitempty"`
	Similarity float64     `json:"similarity"`
	Source     MatchSource `json:"source"`
}
