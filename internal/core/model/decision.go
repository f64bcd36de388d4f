package model

type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionMerge           Action = "MERGE"
	ActionPendingApproval Action = "PENDING_APPROVAL"
)

// ArbitrationResult is the parsed judgment of the LLM arbiter for one
// new-item/existing-item pair. MergeIntoID is only trusted after it has
// been checked against the candidate set that was shown to the arbiter.
type ArbitrationResult struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Confidence  float64 `json:"confidence"`
	MergeIntoID string  `json:"merge_into_id,omitempty"`
	Reason      string  `json:"reason"`
}

// Decision is the terminal output of the dedup resolution pipeline.
// Invariant: MERGE and PENDING_APPROVAL carry an ExistingID that was in
// the candidate list passed to arbitration; CREATE carries none.
type Decision struct {
	Action     Action  `json:"action"`
	ExistingID string  `json:"existing_id,omitempty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
