// Package planner turns a claim's lifecycle position and triggered rules
// into an ordered list of next-best-actions.
package planner

import (
	"fmt"
	"sort"

	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/internal/statemachine"
)

// stateTemplate is the fixed suggestion emitted when a state is reachable
// next. INTAKE and IN_PRODUCTION deliberately have no template: whether
// they should synthesize a suggestion is an open product question, so the
// planner contributes nothing for them.
type stateTemplate struct {
	label         string
	description   string
	priority      model.Priority
	agentName     string
	actionType    model.ActionType
	estimatedTime string
}

var stateTemplates = map[model.ClaimState]stateTemplate{
	model.StateInspected: {
		label:         "Schedule Property Inspection",
		description:   "Book an inspector to document the damage on site.",
		priority:      model.PriorityHigh,
		agentName:     "Planner",
		actionType:    "recommend_next_step",
		estimatedTime: "1-2 days",
	},
	model.StateEstimateDrafted: {
		label:         "Generate AI Estimate",
		description:   "Draft the scope and pricing estimate from inspection data.",
		priority:      model.PriorityHigh,
		agentName:     "Estimate",
		actionType:    "generate_estimate",
		estimatedTime: "1 hour",
	},
	model.StateSubmitted: {
		label:         "Submit to Insurance Carrier",
		description:   "Package and submit the claim to the carrier.",
		priority:      model.PriorityCritical,
		agentName:     "ClaimsBuilder",
		actionType:    "recommend_next_step",
		estimatedTime: "1 day",
	},
	model.StateNegotiating: {
		label:         "Prepare Supplement Letter",
		description:   "Document missed scope and open negotiation with the adjuster.",
		priority:      model.PriorityHigh,
		agentName:     "Supplement",
		actionType:    "generate_letter",
		estimatedTime: "2-3 days",
	},
	model.StateApproved: {
		label:         "Begin Production",
		description:   "Schedule the crew and order materials.",
		priority:      model.PriorityMedium,
		agentName:     "Planner",
		actionType:    "recommend_next_step",
		estimatedTime: "1 week",
	},
	model.StateComplete: {
		label:         "Schedule Final Inspection",
		description:   "Verify the completed work before invoicing.",
		priority:      model.PriorityMedium,
		agentName:     "Planner",
		actionType:    "recommend_next_step",
		estimatedTime: "1-2 days",
	},
	model.StatePaid: {
		label:         "Close Claim",
		description:   "Reconcile payment and archive the claim file.",
		priority:      model.PriorityLow,
		agentName:     "Planner",
		actionType:    "recommend_next_step",
		estimatedTime: "1 hour",
	},
}

// ruleSuggestion maps rule action types that synthesize suggestions.
var ruleSuggestions = map[model.ActionType]struct {
	label    string
	priority model.Priority
}{
	model.ActionFlagRisk:        {label: "Review Flagged Risk", priority: model.PriorityCritical},
	model.ActionRequireDocument: {label: "Collect Required Document", priority: model.PriorityHigh},
	model.ActionAddLineItem:     {label: "Add Estimate Line Item", priority: model.PriorityMedium},
}

// Input carries everything the planner needs for one claim.
type Input struct {
	ClaimID string
	State   *model.ClaimState
	Rules   []model.RuleDefinition
}

// NextActions builds suggestions from (a) the per-state templates of every
// allowed next state and (b) the triggered rules that synthesize work, then
// orders them by priority. Suggestions with equal priority keep their
// insertion order.
func NextActions(in Input) []model.NextActionSuggestion {
	var suggestions []model.NextActionSuggestion

	for _, next := range statemachine.AllowedNextStates(in.State) {
		tmpl, ok := stateTemplates[next]
		if !ok {
			continue
		}
		suggestions = append(suggestions, model.NextActionSuggestion{
			ID:            fmt.Sprintf("%s-state-%s", in.ClaimID, next),
			Label:         tmpl.label,
			Description:   tmpl.description,
			Priority:      tmpl.priority,
			AgentID:       tmpl.agentName,
			ActionType:    tmpl.actionType,
			EstimatedTime: tmpl.estimatedTime,
		})
	}

	for _, rule := range in.Rules {
		for _, actionType := range rule.Action.Types() {
			meta, ok := ruleSuggestions[actionType]
			if !ok {
				continue
			}
			description := rule.Action.Description
			if description == "" {
				description = rule.Description
			}
			suggestion := model.NextActionSuggestion{
				ID:          fmt.Sprintf("%s-rule-%s-%s", in.ClaimID, rule.ID, actionType),
				Label:       meta.label,
				Description: description,
				Priority:    meta.priority,
				ActionType:  actionType,
			}
			switch actionType {
			case model.ActionRequireDocument:
				if rule.Action.Document != "" {
					suggestion.RequiredData = []string{rule.Action.Document}
				}
			case model.ActionAddLineItem:
				if rule.Action.Item != "" {
					suggestion.RequiredData = []string{rule.Action.Item}
				}
			}
			suggestions = append(suggestions, suggestion)
		}
	}

	return Prioritize(suggestions)
}

// Prioritize orders suggestions critical < high < medium < low with a
// stable sort. It exists as the seam for future dependency- or value-based
// refinement; today it is pure priority ordering.
func Prioritize(suggestions []model.NextActionSuggestion) []model.NextActionSuggestion {
	out := make([]model.NextActionSuggestion, len(suggestions))
	copy(out, suggestions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}
