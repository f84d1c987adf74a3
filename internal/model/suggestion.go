package model

// Priority orders next-action suggestions. Lower rank sorts first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns the sort rank for the priority. Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// NextActionSuggestion is a single recommended step for a claim.
type NextActionSuggestion struct {
	ID            string     `json:"id"`
	Label         string     `json:"label"`
	Description   string     `json:"description,omitempty"`
	Priority      Priority   `json:"priority"`
	AgentID       string     `json:"agent_id,omitempty"`
	ActionType    ActionType `json:"action_type"`
	EstimatedTime string     `json:"estimated_time,omitempty"`
	RequiredData  []string   `json:"required_data,omitempty"`
}
