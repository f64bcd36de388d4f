package model

// InferredRelation is a relation derived from an already-committed fact,
// e.g. a "company" fact implying employment.
type InferredRelation struct {
	EntityID         string  `json:"entity_id"`
	OrganizationID   string  `json:"organization_id"`
	OrganizationName string  `json:"organization_name"`
	RelationType     string  `json:"relation_type"`
	Confidence       float64 `json:"confidence"`
}

type ScanError struct {
	FactID string `json:"fact_id"`
	Error  string `json:"error"`
}

// ScanReport aggregates one inference scan. Errors are attributed to the
// fact that caused them; a failing fact never aborts the scan.
type ScanReport struct {
	Processed int                `json:"processed"`
	Created   int                `json:"created"`
	Skipped   int                `json:"skipped"`
	DryRun    bool               `json:"dry_run"`
	Relations []InferredRelation `json:"relations,omitempty"`
	Errors    []ScanError        `json:"errors,omitempty"`
}
