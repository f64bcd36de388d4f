package model

import "time"

// Record is a stored graph node as seen by the matching stages: just
// enough to compare names and report an ID back to the caller.
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// SearchHit is a semantic-search result with its cosine similarity.
type SearchHit struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// Message is a chat message from history, used as enrichment context.
type Message struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Event is a previously extracted concrete event.
type Event struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	EntityID    string    `json:"entity_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Fact is a committed fact about an entity, input to the inference scan.
type Fact struct {
	ID         string    `json:"id"`
	EntityID   string    `json:"entity_id"`
	Category   string    `json:"category"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
