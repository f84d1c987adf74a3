// Package explain renders human-readable reasoning for recommendations.
package explain

import (
	"fmt"
	"strings"

	"github.com/sells-group/claim-intel/internal/model"
)

// actionLabels maps rule action types to the phrasing used in reasoning
// text. Unknown types fall back to the raw type string.
var actionLabels = map[model.ActionType]string{
	model.ActionRecommend:       "recommends the next step",
	model.ActionApprove:         "supports approval",
	model.ActionDeny:            "indicates likely denial",
	model.ActionFlag:            "flags the claim for review",
	model.ActionFlagRisk:        "flags a risk condition",
	model.ActionRequireDocument: "requires additional documentation",
	model.ActionAddLineItem:     "adds an estimate line item",
}

// Input is everything the builder can draw on. All fields are optional;
// an empty input yields the generic fallback explanation.
type Input struct {
	Suggestion   *model.NextActionSuggestion
	FiredRules   []model.RuleDefinition
	SimilarCases []model.SimilarClaim
	Confidence   *float64
}

const fallbackReasoning = "This recommendation follows the standard processing path for the claim's current state."

// Build assembles the reasoning text and its supporting references.
func Build(in Input) model.ExplanationPayload {
	var sentences []string

	if in.Suggestion != nil {
		sentences = append(sentences, suggestionSentence(*in.Suggestion))
	}
	if len(in.FiredRules) > 0 {
		sentences = append(sentences, rulesSentence(in.FiredRules))
	}
	if len(in.SimilarCases) > 0 {
		sentences = append(sentences, similarSentence(in.SimilarCases))
	}
	if in.Confidence != nil {
		sentences = append(sentences, fmt.Sprintf("Confidence in this recommendation is %.0f%%.", *in.Confidence*100))
	}

	if len(sentences) == 0 {
		sentences = append(sentences, fallbackReasoning)
	}

	payload := model.ExplanationPayload{
		Reasoning:       strings.Join(sentences, " "),
		ConfidenceScore: in.Confidence,
	}
	for _, r := range in.FiredRules {
		payload.RulesUsed = append(payload.RulesUsed, r.ID)
	}
	payload.SimilarCases = append(payload.SimilarCases, in.SimilarCases...)
	return payload
}

func suggestionSentence(s model.NextActionSuggestion) string {
	label := s.Label
	if label == "" {
		label = "the suggested action"
	}
	if s.ActionType != "" {
		if phrase, ok := actionLabels[model.ActionType(s.ActionType)]; ok {
			return fmt.Sprintf("%q was selected because an active rule %s.", label, phrase)
		}
		return fmt.Sprintf("%q was selected based on a %s rule.", label, s.ActionType)
	}
	return fmt.Sprintf("%q is the expected next step from the claim's current state.", label)
}

func rulesSentence(rules []model.RuleDefinition) string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		name := r.Name
		if name == "" {
			name = r.ID
		}
		names = append(names, name)
	}
	if len(names) == 1 {
		return fmt.Sprintf("The rule %q matched this claim.", names[0])
	}
	return fmt.Sprintf("%d rules matched this claim: %s.", len(names), strings.Join(names, ", "))
}

func similarSentence(cases []model.SimilarClaim) string {
	top := cases[0]
	for _, c := range cases[1:] {
		if c.Score > top.Score {
			top = c
		}
	}
	base := fmt.Sprintf("%d similar historical claims informed this recommendation", len(cases))
	if top.Score > 0.8 {
		return fmt.Sprintf("%s; the closest match (%s) is a strong precedent at %.0f%% similarity.", base, top.ClaimID, top.Score*100)
	}
	return base + "."
}
