package driver

import "fmt"

// Cypher templates parameterized by node label. Labels cannot be bound as
// query parameters, so they are substituted from the fixed Scope kinds
// before execution; user input never reaches the label position.

const exactLookupTemplate = `
	MATCH (n:%s)
	WHERE n.normalized_name = $name
	  AND (n.deleted_at IS NULL OR n.deleted_at = "")
	  %s
	RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary
	LIMIT 1
`

const fuzzyLookupTemplate = `
	MATCH (n:%s)
	WHERE toLower(n.name) CONTAINS toLower($name)
	  AND (n.deleted_at IS NULL OR n.deleted_at = "")
	  %s
	RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary
	LIMIT $limit
`

const semanticSearchTemplate = `
	CALL vector_search.search("%s", $limit, $vector)
	YIELD node, similarity
	WHERE (node.deleted_at IS NULL OR node.deleted_at = "")
	  %s
	RETURN node.uuid AS uuid, node.name AS name, node.summary AS summary,
	       similarity AS similarity
`

func exactLookupQuery(label, scopeClause string) string {
	return fmt.Sprintf(exactLookupTemplate, label, scopeClause)
}

func fuzzyLookupQuery(label, scopeClause string) string {
	return fmt.Sprintf(fuzzyLookupTemplate, label, scopeClause)
}

func semanticSearchQuery(index, scopeClause string) string {
	return fmt.Sprintf(semanticSearchTemplate, index, scopeClause)
}

const (
	RecentMessagesQuery = `
		MATCH (m:Message)
		WHERE m.sent_at >= $since
		  AND ($entity_id = "" OR m.entity_id = $entity_id)
		  AND any(kw IN $keywords WHERE toLower(m.text) CONTAINS kw)
		RETURN m.uuid AS uuid, m.text AS text, m.sent_at AS sent_at
		ORDER BY m.sent_at DESC
		LIMIT $limit
	`

	RecentEventsQuery = `
		MATCH (e:Event)
		WHERE e.occurred_at >= $since
		  AND e.entity_id = $entity_id
		  AND e.uuid <> $exclude_uuid
		RETURN e.uuid AS uuid, e.description AS description,
		       e.entity_id AS entity_id, e.occurred_at AS occurred_at
		ORDER BY e.occurred_at DESC
		LIMIT $limit
	`

	RelationExistsQuery = `
		MATCH (a {uuid: $a_uuid})-[r:RELATES_TO]->(b {uuid: $b_uuid})
		WHERE r.relation_type = $relation_type
		  AND (r.invalid_at IS NULL OR r.invalid_at = "")
		RETURN r.uuid AS uuid
		LIMIT 1
	`

	CreateRelationQuery = `
		MATCH (a:Entity {uuid: $entity_uuid})
		MATCH (b:Organization {uuid: $org_uuid})
		MERGE (a)-[r:RELATES_TO {uuid: $uuid}]->(b)
		SET r.relation_type = $relation_type,
			r.confidence = $confidence,
			r.provenance = $provenance,
			r.created_at = $created_at
		RETURN r.uuid AS uuid
	`

	ApplyEnrichmentQuery = `
		MATCH (e:Event {uuid: $uuid})
		SET e.linked_event_id = $linked_event_id,
			e.needs_context = $needs_context,
			e.enrichment = $enrichment,
			e.enriched_at = $enriched_at
		RETURN e.uuid AS uuid
	`

	UnlinkedCompanyFactsQuery = `
		MATCH (f:Fact)
		WHERE f.category = $category
		  AND f.created_at >= $since
		  AND (f.deleted_at IS NULL OR f.deleted_at = "")
		  AND NOT EXISTS {
			MATCH (:Entity {uuid: f.entity_id})-[r:RELATES_TO]->(:Organization)
			WHERE r.relation_type = $relation_type
			  AND (r.invalid_at IS NULL OR r.invalid_at = "")
		  }
		RETURN f.uuid AS uuid, f.entity_id AS entity_id, f.category AS category,
		       f.value AS value, f.confidence AS confidence, f.created_at AS created_at
		ORDER BY f.created_at ASC
		LIMIT $limit
	`
)
