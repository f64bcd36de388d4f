package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/core/model"
)

// Kind selects the node label a lookup runs against.
type Kind string

const (
	KindTask         Kind = "Task"
	KindEntity       Kind = "Entity"
	KindCommitment   Kind = "Commitment"
	KindOrganization Kind = "Organization"
	KindEvent        Kind = "Event"
)

// Scope narrows a lookup to one record kind and, when set, one owner,
// one counterpart entity or one entity type. Lookups are never run
// unscoped by kind; entity lookups carry Type so a person and an
// organization sharing a name never match each other.
type Scope struct {
	Kind     Kind
	OwnerID  string
	EntityID string
	Type     string
}

func (s Scope) clause(varName string) string {
	var parts []string
	if s.OwnerID != "" {
		parts = append(parts, fmt.Sprintf("AND %s.owner_id = $owner_id", varName))
	}
	if s.EntityID != "" {
		parts = append(parts, fmt.Sprintf("AND %s.entity_id = $scope_entity_id", varName))
	}
	if s.Type != "" {
		parts = append(parts, fmt.Sprintf("AND %s.type = $scope_type", varName))
	}
	return strings.Join(parts, "\n\t  ")
}

func (s Scope) params() map[string]interface{} {
	p := map[string]interface{}{}
	if s.OwnerID != "" {
		p["owner_id"] = s.OwnerID
	}
	if s.EntityID != "" {
		p["scope_entity_id"] = s.EntityID
	}
	if s.Type != "" {
		p["scope_type"] = s.Type
	}
	return p
}

func (s Scope) vectorIndex() string {
	return strings.ToLower(string(s.Kind)) + "_name_index"
}

// Store implements the storage collaborators of the resolution engine
// against the graph. All reads exclude soft-deleted nodes.
type Store struct {
	driver GraphDriver
	log    *zap.Logger
}

func NewStore(d GraphDriver, log *zap.Logger) *Store {
	return &Store{driver: d, log: log}
}

// ExactLookup finds the record whose normalized stored name equals the
// given normalized name, or nil when there is none.
func (s *Store) ExactLookup(ctx context.Context, normalizedName string, scope Scope) (*model.Record, error) {
	params := scope.params()
	params["name"] = normalizedName

	res, err := s.driver.ExecuteQuery(ctx, exactLookupQuery(string(scope.Kind), scope.clause("n")), params)
	if err != nil {
		return nil, fmt.Errorf("exact lookup failed: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	rec := recordFrom(res.Records[0])
	return &rec, nil
}

// FuzzyLookup finds records whose raw name contains the candidate name,
// case-insensitively.
func (s *Store) FuzzyLookup(ctx context.Context, rawName string, scope Scope, limit int) ([]model.Record, error) {
	params := scope.params()
	params["name"] = rawName
	params["limit"] = int64(limit)

	res, err := s.driver.ExecuteQuery(ctx, fuzzyLookupQuery(string(scope.Kind), scope.clause("n")), params)
	if err != nil {
		return nil, fmt.Errorf("fuzzy lookup failed: %w", err)
	}

	records := make([]model.Record, 0, len(res.Records))
	for _, r := range res.Records {
		records = append(records, recordFrom(r))
	}
	return records, nil
}

// SemanticSearch runs nearest-neighbor search over the kind's name
// embedding index.
func (s *Store) SemanticSearch(ctx context.Context, vector []float32, scope Scope, limit int) ([]model.SearchHit, error) {
	params := scope.params()
	params["vector"] = vector
	params["limit"] = int64(limit)

	res, err := s.driver.ExecuteQuery(ctx, semanticSearchQuery(scope.vectorIndex(), scope.clause("node")), params)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	hits := make([]model.SearchHit, 0, len(res.Records))
	for _, r := range res.Records {
		hits = append(hits, model.SearchHit{
			ID:          asString(r, "uuid"),
			Name:        asString(r, "name"),
			Description: asString(r, "summary"),
			Similarity:  asFloat(r, "similarity"),
		})
	}
	return hits, nil
}

// RecentMessages returns messages from the trailing window that mention
// any of the keywords, newest first. An empty entityID searches across
// all counterparts.
func (s *Store) RecentMessages(ctx context.Context, entityID string, keywords []string, since time.Time, limit int) ([]model.Message, error) {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		lowered = append(lowered, strings.ToLower(kw))
	}

	res, err := s.driver.ExecuteQuery(ctx, RecentMessagesQuery, map[string]interface{}{
		"entity_id": entityID,
		"keywords":  lowered,
		"since":     since.UTC().Format(time.RFC3339),
		"limit":     int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("message search failed: %w", err)
	}

	msgs := make([]model.Message, 0, len(res.Records))
	for _, r := range res.Records {
		msgs = append(msgs, model.Message{
			ID:     asString(r, "uuid"),
			Text:   asString(r, "text"),
			SentAt: asTime(r, "sent_at"),
		})
	}
	return msgs, nil
}

// RecentEvents returns other extracted events for the entity in the
// window, newest first, excluding the event being enriched.
func (s *Store) RecentEvents(ctx context.Context, entityID, excludeEventID string, since time.Time, limit int) ([]model.Event, error) {
	res, err := s.driver.ExecuteQuery(ctx, RecentEventsQuery, map[string]interface{}{
		"entity_id":    entityID,
		"exclude_uuid": excludeEventID,
		"since":        since.UTC().Format(time.RFC3339),
		"limit":        int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("event search failed: %w", err)
	}

	events := make([]model.Event, 0, len(res.Records))
	for _, r := range res.Records {
		events = append(events, model.Event{
			ID:          asString(r, "uuid"),
			Description: asString(r, "description"),
			EntityID:    asString(r, "entity_id"),
			OccurredAt:  asTime(r, "occurred_at"),
		})
	}
	return events, nil
}

// RelationExists reports whether a currently-valid relation of the given
// type links the two nodes.
func (s *Store) RelationExists(ctx context.Context, entityID, organizationID, relationType string) (bool, error) {
	res, err := s.driver.ExecuteQuery(ctx, RelationExistsQuery, map[string]interface{}{
		"a_uuid":        entityID,
		"b_uuid":        organizationID,
		"relation_type": relationType,
	})
	if err != nil {
		return false, fmt.Errorf("relation lookup failed: %w", err)
	}
	return len(res.Records) > 0, nil
}

// CreateRelation writes an inferred relation edge and returns its ID.
func (s *Store) CreateRelation(ctx context.Context, rel model.InferredRelation, provenance string) (string, error) {
	id := uuid.New().String()
	_, err := s.driver.ExecuteQuery(ctx, CreateRelationQuery, map[string]interface{}{
		"uuid":          id,
		"entity_uuid":   rel.EntityID,
		"org_uuid":      rel.OrganizationID,
		"relation_type": rel.RelationType,
		"confidence":    rel.Confidence,
		"provenance":    provenance,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create relation: %w", err)
	}
	return id, nil
}

// ApplyEnrichment writes an enrichment result onto the event's record.
// Re-applying overwrites the previous enrichment data.
func (s *Store) ApplyEnrichment(ctx context.Context, eventID string, result model.EnrichmentResult) error {
	payload, err := json.Marshal(result.Data)
	if err != nil {
		return fmt.Errorf("failed to serialize enrichment data: %w", err)
	}

	_, err = s.driver.ExecuteQuery(ctx, ApplyEnrichmentQuery, map[string]interface{}{
		"uuid":            eventID,
		"linked_event_id": result.LinkedEventID,
		"needs_context":   result.NeedsContext,
		"enrichment":      string(payload),
		"enriched_at":     result.Data.EnrichedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to apply enrichment: %w", err)
	}
	return nil
}

// UnlinkedFacts returns facts of the category that have no currently
// valid relation of the implied type, oldest first.
func (s *Store) UnlinkedFacts(ctx context.Context, category, relationType string, since time.Time, limit int) ([]model.Fact, error) {
	if limit <= 0 {
		limit = 1000
	}
	res, err := s.driver.ExecuteQuery(ctx, UnlinkedCompanyFactsQuery, map[string]interface{}{
		"category":      category,
		"relation_type": relationType,
		"since":         since.UTC().Format(time.RFC3339),
		"limit":         int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("fact scan query failed: %w", err)
	}

	facts := make([]model.Fact, 0, len(res.Records))
	for _, r := range res.Records {
		facts = append(facts, model.Fact{
			ID:         asString(r, "uuid"),
			EntityID:   asString(r, "entity_id"),
			Category:   asString(r, "category"),
			Value:      asString(r, "value"),
			Confidence: asFloat(r, "confidence"),
			CreatedAt:  asTime(r, "created_at"),
		})
	}
	return facts, nil
}

func recordFrom(r *neo4j.Record) model.Record {
	return model.Record{
		ID:      asString(r, "uuid"),
		Name:    asString(r, "name"),
		Summary: asString(r, "summary"),
	}
}

func asString(r *neo4j.Record, key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func asFloat(r *neo4j.Record, key string) float64 {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asTime(r *neo4j.Record, key string) time.Time {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	}
	return time.Time{}
}
