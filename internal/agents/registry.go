// Package agents holds the catalog of named strategy profiles behind a
// repository interface. Reads dominate; the admin Create path is the only
// writer and is serialized by the repository.
package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claim-intel/internal/model"
)

// ErrAgentNotFound means no agent matches the lookup.
var ErrAgentNotFound = eris.New("agents: agent not found")

// Repository is the read interface plus the single-writer admin path.
type Repository interface {
	List(ctx context.Context) ([]model.AgentDefinition, error)
	GetByID(ctx context.Context, id string) (*model.AgentDefinition, error)
	GetByName(ctx context.Context, name string) (*model.AgentDefinition, error)
	ForActionType(ctx context.Context, actionType string) ([]model.AgentDefinition, error)
	Create(ctx context.Context, def model.AgentDefinition) (*model.AgentDefinition, error)
}

// actionTypeAgents maps orchestration action types to the agents that can
// serve them. Unmapped types resolve to an empty list.
var actionTypeAgents = map[string][]string{
	"generate_estimate":   {"Estimate"},
	"generate_letter":     {"Appeal", "Supplement"},
	"recommend_next_step": {"Planner", "Orchestrator"},
	"negotiate":           {"Negotiation"},
	"analyze_risk":        {"RiskAnalysis"},
}

// MemoryRepository is the in-process catalog seeded with the built-in
// agents.
type MemoryRepository struct {
	mu     sync.RWMutex
	agents []model.AgentDefinition
	nowFn  func() time.Time
}

// NewMemoryRepository returns a repository seeded with the built-in catalog.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		agents: builtinAgents(),
		nowFn:  time.Now,
	}
}

func (r *MemoryRepository) List(_ context.Context) ([]model.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentDefinition, len(r.agents))
	copy(out, r.agents)
	return out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*model.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if a.ID == id {
			agent := a
			return &agent, nil
		}
	}
	return nil, eris.Wrapf(ErrAgentNotFound, "id %s", id)
}

func (r *MemoryRepository) GetByName(_ context.Context, name string) (*model.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if strings.EqualFold(a.Name, name) {
			agent := a
			return &agent, nil
		}
	}
	return nil, eris.Wrapf(ErrAgentNotFound, "name %s", name)
}

// ForActionType resolves the fixed action-type mapping to agent
// definitions. Unknown action types return an empty list, not an error.
func (r *MemoryRepository) ForActionType(ctx context.Context, actionType string) ([]model.AgentDefinition, error) {
	names := actionTypeAgents[actionType]
	var out []model.AgentDefinition
	for _, name := range names {
		agent, err := r.GetByName(ctx, name)
		if err != nil {
			continue
		}
		out = append(out, *agent)
	}
	return out, nil
}

// Create appends a new agent under the write lock. The id is synthesized
// from the slugged name plus a timestamp, matching the admin tooling's
// expectations.
func (r *MemoryRepository) Create(_ context.Context, def model.AgentDefinition) (*model.AgentDefinition, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, eris.New("agents: name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.agents {
		if strings.EqualFold(a.Name, def.Name) {
			return nil, eris.Errorf("agents: name %q already exists", def.Name)
		}
	}

	def.ID = fmt.Sprintf("%s-%d", slug(def.Name), r.nowFn().UnixMilli())
	r.agents = append(r.agents, def)
	created := def
	return &created, nil
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// builtinAgents is the fixed catalog of 8 strategy profiles.
func builtinAgents() []model.AgentDefinition {
	return []model.AgentDefinition{
		{
			ID:          "agent-estimate",
			Name:        "Estimate",
			Description: "Builds carrier-ready scope and pricing estimates.",
			Goal:        "Maximize estimate accuracy and first-pass carrier acceptance.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"approval": 0.35, "cycleTime": 0.25, "payout": 0.3, "satisfaction": 0.1},
				Thresholds:         map[string]float64{"minLineItemConfidence": 0.75},
				OptimizationTarget: "estimate_accuracy",
			},
		},
		{
			ID:          "agent-appeal",
			Name:        "Appeal",
			Description: "Drafts appeal letters for denied or underpaid claims.",
			Goal:        "Overturn denials with code-backed, persuasive appeals.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"persuasiveness": 0.4, "codeCompliance": 0.3, "successRate": 0.2, "responseTime": 0.1},
				Thresholds:         map[string]float64{"minDenialAge": 0, "maxAppealRounds": 3},
				OptimizationTarget: "appeal_success",
			},
		},
		{
			ID:          "agent-supplement",
			Name:        "Supplement",
			Description: "Identifies and documents missed scope for supplements.",
			Goal:        "Recover omitted line items without stalling the claim.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"approval": 0.3, "cycleTime": 0.2, "payout": 0.4, "satisfaction": 0.1},
				Thresholds:         map[string]float64{"minSupplementValue": 500},
				OptimizationTarget: "supplement_recovery",
			},
		},
		{
			ID:          "agent-negotiation",
			Name:        "Negotiation",
			Description: "Runs carrier-specific negotiation playbooks.",
			Goal:        "Close the gap between estimate and carrier offer.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"approval": 0.3, "cycleTime": 0.15, "payout": 0.45, "satisfaction": 0.1},
				Thresholds:         map[string]float64{"walkAwayRatio": 0.85},
				OptimizationTarget: "settlement_value",
			},
		},
		{
			ID:          "agent-planner",
			Name:        "Planner",
			Description: "Sequences the next best actions for a claim.",
			Goal:        "Keep every claim moving along the shortest viable path.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"approval": 0.3, "cycleTime": 0.45, "payout": 0.1, "satisfaction": 0.15},
				OptimizationTarget: "cycle_time",
			},
		},
		{
			ID:          "agent-risk-analysis",
			Name:        "RiskAnalysis",
			Description: "Scores denial and underpayment exposure.",
			Goal:        "Surface claim weaknesses before the carrier does.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"approval": 0.5, "cycleTime": 0.1, "payout": 0.2, "satisfaction": 0.2},
				Thresholds:         map[string]float64{"flagThreshold": 0.6},
				OptimizationTarget: "risk_detection",
			},
		},
		{
			ID:          "agent-claims-builder",
			Name:        "ClaimsBuilder",
			Description: "Assembles complete claim packets and documentation.",
			Goal:        "Submit complete, well-documented claims the first time.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"approval": 0.45, "cycleTime": 0.25, "payout": 0.15, "satisfaction": 0.15},
				Thresholds:         map[string]float64{"minDocumentCount": 4},
				OptimizationTarget: "submission_completeness",
			},
		},
		{
			ID:          "agent-orchestrator",
			Name:        "Orchestrator",
			Description: "Coordinates the other agents and composes recommendations.",
			Goal:        "Produce one consolidated, explainable recommendation per claim.",
			Utility: model.UtilityModel{
				Weights:            map[string]float64{"approval": 0.4, "cycleTime": 0.3, "payout": 0.2, "satisfaction": 0.1},
				OptimizationTarget: "recommendation_quality",
			},
		},
	}
}
