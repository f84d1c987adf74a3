// Package orchestrator coordinates the full intelligence pipeline for one
// claim: state resolution, rule evaluation, planning, similarity lookup,
// heuristic scoring, explanation, and negotiation.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/claim-intel/internal/agents"
	"github.com/sells-group/claim-intel/internal/claimctx"
	"github.com/sells-group/claim-intel/internal/explain"
	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/internal/negotiation"
	"github.com/sells-group/claim-intel/internal/planner"
	"github.com/sells-group/claim-intel/internal/rules"
	"github.com/sells-group/claim-intel/internal/similarity"
	"github.com/sells-group/claim-intel/internal/statemachine"
	"github.com/sells-group/claim-intel/internal/store"
	"github.com/sells-group/claim-intel/internal/utility"
)

// Request types gate which optional sections of the pipeline run.
const (
	RequestFullIntelligence = "full_intelligence"
	RequestNegotiate        = "negotiate"
	RequestNextActions      = "next_actions"
)

// Request identifies the claim and the caller's intent.
type Request struct {
	ClaimID string `json:"claim_id"`
	OrgID   string `json:"org_id"`
	// RequestType defaults to RequestFullIntelligence when empty.
	RequestType string `json:"request_type,omitempty"`
}

// Options tunes the pipeline. Zero values get defaults from New.
type Options struct {
	// SimilarLimit caps the similar-claim lookup.
	SimilarLimit int
	// LookupTimeout time-boxes each degradable sub-lookup individually.
	LookupTimeout time.Duration
	// DedupeActions collapses repeated action types across fired rules.
	DedupeActions bool
}

const (
	defaultSimilarLimit  = 5
	defaultLookupTimeout = 3 * time.Second
)

// Orchestrator wires the collaborators behind OrchestrateClaim.
type Orchestrator struct {
	store    store.Store
	machine  *statemachine.Machine
	contexts *claimctx.Builder
	agents   agents.Repository
	searcher *similarity.Searcher
	opts     Options
}

func New(st store.Store, machine *statemachine.Machine, contexts *claimctx.Builder, repo agents.Repository, searcher *similarity.Searcher, opts Options) *Orchestrator {
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = defaultSimilarLimit
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}
	return &Orchestrator{
		store:    st,
		machine:  machine,
		contexts: contexts,
		agents:   repo,
		searcher: searcher,
		opts:     opts,
	}
}

// OrchestrateClaim runs the pipeline and returns a consolidated result.
// A missing claim is the only fatal condition; every other sub-lookup
// degrades to an empty section so the caller still gets a best-effort
// answer.
func (o *Orchestrator) OrchestrateClaim(ctx context.Context, req Request) (*model.OrchestratorOutput, error) {
	if req.RequestType == "" {
		req.RequestType = RequestFullIntelligence
	}

	claim, err := o.store.GetClaim(ctx, req.ClaimID)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: load claim %s", req.ClaimID)
	}

	state, err := o.machine.CurrentState(ctx, req.ClaimID)
	var warnings []string
	if err != nil {
		zap.L().Warn("orchestrator: state resolution failed, treating claim as new",
			zap.String("claim_id", req.ClaimID),
			zap.Error(err),
		)
		warnings = append(warnings, "state history unavailable")
		state = nil
	}
	allowed := statemachine.AllowedNextStates(state)

	// Rule evaluation and similarity search hit the store independently;
	// run them concurrently, each under its own timeout. Both degrade to
	// empty on failure, so the group never reports an error.
	var fired []model.RuleDefinition
	var similar []model.SimilarClaim

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(gctx, o.opts.LookupTimeout)
		defer cancel()
		fired = o.evaluateRules(lctx, *claim, state)
		return nil
	})
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(gctx, o.opts.LookupTimeout)
		defer cancel()
		similar = o.searcher.FindSimilarClaims(lctx, req.ClaimID, o.opts.SimilarLimit)
		return nil
	})
	_ = g.Wait()

	intel := ComputeIntelligence(state, fired, similar)
	intel.Warnings = append(intel.Warnings, warnings...)

	nextActions := planner.NextActions(planner.Input{
		ClaimID: req.ClaimID,
		State:   state,
		Rules:   fired,
	})
	o.resolveAgentIDs(ctx, nextActions)

	explanation := o.buildExplanation(nextActions, fired, similar, intel.ApprovalLikelihood)

	var negotiations []model.NegotiationSuggestion
	if claim.Carrier != "" && wantsNegotiation(req.RequestType) {
		negotiations = negotiation.GetSuggestions(negotiation.Input{
			Carrier:       claim.Carrier,
			ClaimID:       req.ClaimID,
			DenialReason:  claim.DenialReason,
			EstimateValue: claim.EstimatedValue,
		})
	}

	out := &model.OrchestratorOutput{
		ClaimID:                req.ClaimID,
		Intelligence:           intel,
		NextActions:            nextActions,
		Explanation:            explanation,
		NegotiationSuggestions: negotiations,
		SimilarClaims:          similar,
		AllowedNextStates:      allowed,
		Timestamp:              time.Now().UTC(),
	}

	o.logOrchestration(ctx, req, fired, out)

	return out, nil
}

// ShouldTakeAction reports whether the claim has any actionable next step.
// Terminal and in-production claims never do.
func (o *Orchestrator) ShouldTakeAction(ctx context.Context, claimID string) (bool, error) {
	state, err := o.machine.CurrentState(ctx, claimID)
	if err != nil {
		return false, eris.Wrapf(err, "orchestrator: resolve state for %s", claimID)
	}
	if state != nil && (*state == model.StateComplete || *state == model.StatePaid) {
		return false, nil
	}
	suggestions := planner.NextActions(planner.Input{ClaimID: claimID, State: state})
	return len(suggestions) > 0, nil
}

// evaluateRules loads the stored ruleset and evaluates it against the
// claim's flattened context. Store failures degrade to zero fired rules.
func (o *Orchestrator) evaluateRules(ctx context.Context, claim model.Claim, state *model.ClaimState) []model.RuleDefinition {
	engine, err := rules.Load(ctx, o.store, rules.Options{DedupeActions: o.opts.DedupeActions})
	if err != nil {
		zap.L().Warn("orchestrator: rule load failed, continuing without rules",
			zap.String("claim_id", claim.ID),
			zap.Error(err),
		)
		return nil
	}
	claimCtx := o.contexts.Build(ctx, claim, state)
	return engine.EvaluateForClaim(claimCtx)
}

// resolveAgentIDs swaps the planner's agent names for catalog ids where
// the catalog knows them. Unknown names pass through unchanged.
func (o *Orchestrator) resolveAgentIDs(ctx context.Context, suggestions []model.NextActionSuggestion) {
	if o.agents == nil {
		return
	}
	for i := range suggestions {
		if suggestions[i].AgentID == "" {
			continue
		}
		if def, err := o.agents.GetByName(ctx, suggestions[i].AgentID); err == nil && def != nil {
			suggestions[i].AgentID = def.ID
		}
	}
}

func (o *Orchestrator) buildExplanation(nextActions []model.NextActionSuggestion, fired []model.RuleDefinition, similar []model.SimilarClaim, confidence float64) model.ExplanationPayload {
	// Without a concrete recommendation there is nothing to explain:
	// render the default payload even when rules or precedents fired.
	if len(nextActions) == 0 {
		return explain.Build(explain.Input{})
	}

	top := nextActions[0]
	return explain.Build(explain.Input{
		Suggestion:   &top,
		FiredRules:   fired,
		SimilarCases: similar,
		Confidence:   &confidence,
	})
}

// logOrchestration appends the feedback-loop record. Best-effort: a
// failed write is logged and swallowed.
func (o *Orchestrator) logOrchestration(ctx context.Context, req Request, fired []model.RuleDefinition, out *model.OrchestratorOutput) {
	engine := rules.NewEngine(nil, rules.Options{DedupeActions: o.opts.DedupeActions})
	executed := engine.ExecuteActions(fired)

	scored := make([]utility.ScoredAction, 0, len(executed))
	for _, actionType := range executed {
		scored = append(scored, utility.ScoredAction{
			ActionType: actionType,
			Utility: utility.CalculateExpectedUtility(actionType, map[string]float64{
				utility.MetricApprovalRate: out.Intelligence.ApprovalLikelihood,
			}, nil),
			Cost: 1,
		})
	}
	bestAction := utility.SelectBestAction(scored)

	entry := model.ActionLogEntry{
		ID:         uuid.NewString(),
		ClaimID:    req.ClaimID,
		AgentID:    "orchestrator",
		ActionType: "orchestrate",
		InputData: map[string]any{
			"org_id":       req.OrgID,
			"request_type": req.RequestType,
		},
		OutputData: map[string]any{
			"approval_likelihood": out.Intelligence.ApprovalLikelihood,
			"strategy":            out.Intelligence.RecommendedStrategy,
			"next_actions":        len(out.NextActions),
			"similar_claims":      len(out.SimilarClaims),
			"fired_rules":         len(fired),
			"best_action":         string(bestAction),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.AppendActionLog(ctx, entry); err != nil {
		zap.L().Warn("orchestrator: action log append failed",
			zap.String("claim_id", req.ClaimID),
			zap.Error(err),
		)
	}
}

func wantsNegotiation(requestType string) bool {
	switch requestType {
	case RequestFullIntelligence, RequestNegotiate:
		return true
	}
	return false
}

// ComputeIntelligence scores the claim with the additive heuristic over
// lifecycle position, fired rules, and similar-claim evidence. All
// probability outputs are clamped to [0,1].
func ComputeIntelligence(state *model.ClaimState, fired []model.RuleDefinition, similar []model.SimilarClaim) model.ClaimIntelligence {
	approval := 0.5
	var factors []string

	strongMatches := 0
	for _, s := range similar {
		if s.Score > 0.7 {
			strongMatches++
		}
	}
	if strongMatches > 0 {
		approval += 0.2
		factors = append(factors, fmt.Sprintf("%d similar successful claim(s)", strongMatches))
	}

	positive, negative := 0, 0
	for _, rule := range fired {
		for _, actionType := range rule.Action.Types() {
			switch actionType {
			case model.ActionRecommend, model.ActionApprove:
				positive++
			case model.ActionDeny, model.ActionFlag:
				negative++
			}
		}
	}
	if positive > 0 {
		approval += 0.15
		factors = append(factors, fmt.Sprintf("%d supporting rule action(s)", positive))
	}
	if negative > 0 {
		approval -= 0.15
		factors = append(factors, fmt.Sprintf("%d cautionary rule action(s)", negative))
	}

	if state != nil {
		switch *state {
		case model.StateSubmitted, model.StateNegotiating, model.StateApproved:
			approval += 0.1
			factors = append(factors, fmt.Sprintf("claim is progressing (%s)", *state))
		}
	}

	approval = utility.Clamp(approval)

	strategy := "standard_processing"
	switch {
	case approval < 0.4:
		strategy = "strengthen_documentation"
	case approval > 0.7:
		strategy = "fast_track"
	}

	return model.ClaimIntelligence{
		ApprovalLikelihood:           approval,
		SupplementSuccessProbability: utility.Clamp(approval * 0.7),
		RiskScore:                    utility.Clamp(1 - approval),
		RecommendedStrategy:          strategy,
		KeyFactors:                   factors,
	}
}
