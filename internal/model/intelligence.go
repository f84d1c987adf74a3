package model

import "time"

// SimilarClaim pairs a historical claim with its cosine similarity score.
type SimilarClaim struct {
	ClaimID string  `json:"claim_id"`
	Score   float64 `json:"score"`
}

// ExplanationPayload is the rendered rationale for a recommendation.
type ExplanationPayload struct {
	Reasoning       string         `json:"reasoning"`
	RulesUsed       []string       `json:"rules_used"`
	SimilarCases    []SimilarClaim `json:"similar_cases"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
}

// RiskLevel grades a negotiation approach.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// NegotiationSuggestion is one composed negotiation play.
type NegotiationSuggestion struct {
	Summary        string    `json:"summary"`
	Steps          []string  `json:"steps"`
	ExpectedImpact string    `json:"expected_impact,omitempty"`
	Tactics        []string  `json:"tactics"`
	RiskLevel      RiskLevel `json:"risk_level"`
}

// ClaimIntelligence is the aggregate scoring output of an orchestration.
// All probability-like fields are clamped to [0,1].
type ClaimIntelligence struct {
	ApprovalLikelihood           float64  `json:"approval_likelihood"`
	SupplementSuccessProbability float64  `json:"supplement_success_probability"`
	RiskScore                    float64  `json:"risk_score"`
	RecommendedStrategy          string   `json:"recommended_strategy"`
	KeyFactors                   []string `json:"key_factors"`
	Warnings                     []string `json:"warnings,omitempty"`
}

// OrchestratorOutput is the consolidated result of one orchestration call.
type OrchestratorOutput struct {
	ClaimID                string                  `json:"claim_id"`
	Intelligence           ClaimIntelligence       `json:"intelligence"`
	NextActions            []NextActionSuggestion  `json:"next_actions"`
	Explanation            ExplanationPayload      `json:"explanation"`
	NegotiationSuggestions []NegotiationSuggestion `json:"negotiation_suggestions,omitempty"`
	SimilarClaims          []SimilarClaim          `json:"similar_claims"`
	AllowedNextStates      []ClaimState            `json:"allowed_next_states"`
	Timestamp              time.Time               `json:"timestamp"`
}
