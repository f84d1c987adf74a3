package model

// UtilityModel holds the weighted-metric scoring profile for an agent.
// Weights map metric names to relative importance; Thresholds carry
// agent-specific cutoffs consulted by callers.
type UtilityModel struct {
	Weights            map[string]float64 `json:"weights,omitempty"`
	Thresholds         map[string]float64 `json:"thresholds,omitempty"`
	OptimizationTarget string             `json:"optimization_target,omitempty"`
}

// AgentDefinition is a named strategy profile in the agent catalog.
// Definitions are immutable once created; the registry only appends.
type AgentDefinition struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Goal        string       `json:"goal"`
	Utility     UtilityModel `json:"utility_model"`
}
