package model

import "time"

// StateHistoryEntry is one append-only row in a claim's transition history.
// The claim's current state is the most recently created entry. Rows are
// never updated or deleted, so the history doubles as an audit trail.
type StateHistoryEntry struct {
	ID            string      `json:"id"`
	ClaimID       string      `json:"claim_id"`
	OrgID         string      `json:"org_id"`
	CurrentState  ClaimState  `json:"current_state"`
	PreviousState *ClaimState `json:"previous_state,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ActionLogEntry records one agent/orchestrator call for the feedback loop.
// Appends are best-effort: a failed log write never fails the caller.
type ActionLogEntry struct {
	ID         string         `json:"id"`
	ClaimID    string         `json:"claim_id"`
	AgentID    string         `json:"agent_id"`
	ActionType string         `json:"action_type"`
	InputData  map[string]any `json:"input_data,omitempty"`
	OutputData map[string]any `json:"output_data,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
