// Package negotiation composes carrier-, denial- and value-specific
// negotiation tactics into ordered suggestions.
package negotiation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/claim-intel/internal/model"
)

// CarrierStrategy is a per-carrier negotiation profile.
type CarrierStrategy struct {
	Summary   string          `json:"summary"`
	Tactics   []string        `json:"tactics"`
	RiskLevel model.RiskLevel `json:"risk_level"`
}

// carrierStrategies keys are canonical carrier names (see normalizeCarrier).
var carrierStrategies = map[string]CarrierStrategy{
	"State Farm": {
		Summary: "State Farm leans on Xactimate pricing and initial-scope anchoring; win on documentation volume.",
		Tactics: []string{
			"Submit line-item photo documentation for every disputed item",
			"Cite Xactimate price-list region and date in all correspondence",
			"Request the adjuster's scope sheet early and reconcile line by line",
		},
		RiskLevel: model.RiskLow,
	},
	"Allstate": {
		Summary: "Allstate settles fastest when presented with comparable-claim precedents and firm deadlines.",
		Tactics: []string{
			"Reference comparable regional settlements for the same peril",
			"Set written response deadlines and follow up on the day",
			"Escalate to a desk-adjuster supervisor after two stalled rounds",
		},
		RiskLevel: model.RiskMedium,
	},
	"USAA": {
		Summary: "USAA adjusters have wide latitude; collaborative tone with strong evidence closes quickly.",
		Tactics: []string{
			"Lead with the member's service context and keep the tone collaborative",
			"Provide a single consolidated evidence packet, not piecemeal uploads",
		},
		RiskLevel: model.RiskLow,
	},
	"Liberty Mutual": {
		Summary: "Liberty Mutual disputes depreciation aggressively; fight on recoverable depreciation math.",
		Tactics: []string{
			"Itemize recoverable vs non-recoverable depreciation explicitly",
			"Invoke appraisal clause language when depreciation exceeds policy norms",
		},
		RiskLevel: model.RiskMedium,
	},
	"Farmers": {
		Summary: "Farmers relies on preferred-vendor pricing; counter with local market rates.",
		Tactics: []string{
			"Attach three local contractor bids to rebut vendor pricing",
			"Challenge overhead-and-profit omissions on multi-trade losses",
		},
		RiskLevel: model.RiskMedium,
	},
}

// defaultStrategy is returned for unknown carriers. Lookups never come
// back empty-handed.
var defaultStrategy = CarrierStrategy{
	Summary: "No carrier-specific playbook on file; run the standard evidence-first negotiation.",
	Tactics: []string{
		"Document every disputed line item with photos and measurements",
		"Keep all carrier communication in writing",
		"Request a re-inspection with your inspector present",
	},
	RiskLevel: model.RiskMedium,
}

var titleCaser = cases.Title(language.AmericanEnglish)

// normalizeCarrier canonicalizes user- and CRM-supplied carrier names so
// "state farm", "STATE FARM" and "State Farm" hit the same table row.
func normalizeCarrier(carrier string) string {
	trimmed := strings.Join(strings.Fields(carrier), " ")
	if trimmed == "" {
		return ""
	}
	normalized := titleCaser.String(strings.ToLower(trimmed))
	// USAA is an initialism, not a word.
	if strings.EqualFold(normalized, "usaa") {
		return "USAA"
	}
	return normalized
}

// GetCarrierStrategy resolves the carrier's profile, falling back to the
// default profile for unknown carriers.
func GetCarrierStrategy(carrier string) CarrierStrategy {
	if s, ok := carrierStrategies[normalizeCarrier(carrier)]; ok {
		return s
	}
	return defaultStrategy
}

// Input carries the signals the selector composes over.
type Input struct {
	Carrier       string
	ClaimID       string
	DenialReason  string
	EstimateValue float64
}

// highValueThreshold gates the large-claim strategy.
const highValueThreshold = 50000

// GetSuggestions composes, in order: the carrier strategy, general best
// practices, a denial-reason-specific play (only when a reason is given),
// and a high-value strategy (only above the threshold). Callers get 2-4
// suggestions and must not assume a fixed length.
func GetSuggestions(in Input) []model.NegotiationSuggestion {
	strategy := GetCarrierStrategy(in.Carrier)

	suggestions := []model.NegotiationSuggestion{
		{
			Summary:        strategy.Summary,
			Steps:          []string{"Review the carrier profile", "Prepare tactic-specific evidence", "Open negotiation in writing"},
			Tactics:        strategy.Tactics,
			RiskLevel:      strategy.RiskLevel,
			ExpectedImpact: "Aligns the approach with this carrier's known behavior",
		},
		generalBestPractices(),
	}

	if in.DenialReason != "" {
		suggestions = append(suggestions, denialResponse(in.DenialReason))
	}

	if in.EstimateValue > highValueThreshold {
		suggestions = append(suggestions, model.NegotiationSuggestion{
			Summary: "High-value claim: bring in senior review and prepare for appraisal.",
			Steps: []string{
				"Route the file through senior estimator review",
				"Pre-draft the appraisal demand in case negotiation stalls",
				"Engage the policyholder on expectations and timelines",
			},
			Tactics:        []string{"Use the appraisal clause as leverage", "Split the negotiation into trade-level packages"},
			RiskLevel:      model.RiskHigh,
			ExpectedImpact: "Protects recovery on claims where small percentage gaps are large dollars",
		})
	}

	return suggestions
}

func generalBestPractices() model.NegotiationSuggestion {
	return model.NegotiationSuggestion{
		Summary: "General negotiation best practices for carrier claims.",
		Steps: []string{
			"Anchor on your documented estimate, not the carrier's offer",
			"Concede low-value items to protect high-value ones",
			"Summarize every call in a follow-up email",
		},
		Tactics: []string{
			"Never accept the first offer on disputed scope",
			"Quote policy language back to the adjuster",
			"Keep a dated log of every interaction",
		},
		RiskLevel: model.RiskLow,
	}
}

// denialResponse buckets the denial reason by keyword and returns the
// matching play; unmatched reasons get the generic denial response.
func denialResponse(reason string) model.NegotiationSuggestion {
	lower := strings.ToLower(reason)

	switch {
	case strings.Contains(lower, "age") || strings.Contains(lower, "wear"):
		return model.NegotiationSuggestion{
			Summary: "Age/wear denial: separate storm damage from maintenance condition.",
			Steps: []string{
				"Commission an inspection distinguishing impact damage from wear",
				"Pull weather data for the date of loss",
				"Cite policy language on sudden-and-accidental damage",
			},
			Tactics:   []string{"Use test squares to demonstrate impact density", "Attach date-stamped storm verification"},
			RiskLevel: model.RiskMedium,
		}
	case strings.Contains(lower, "price") || strings.Contains(lower, "cost"):
		return model.NegotiationSuggestion{
			Summary: "Pricing denial: rebut with market-rate evidence.",
			Steps: []string{
				"Gather three comparable local bids",
				"Document material price increases since the price list date",
				"Request the carrier's pricing source in writing",
			},
			Tactics:   []string{"Challenge stale price-list dates", "Itemize labor-market deltas"},
			RiskLevel: model.RiskMedium,
		}
	case strings.Contains(lower, "code") || strings.Contains(lower, "upgrade"):
		return model.NegotiationSuggestion{
			Summary: "Code-upgrade denial: invoke ordinance-and-law coverage.",
			Steps: []string{
				"Cite the adopted building code edition for the jurisdiction",
				"Get a letter from the building department on enforcement",
				"Map each upgrade item to its code section",
			},
			Tactics:   []string{"Quote the ordinance-and-law endorsement", "Attach the permit requirements"},
			RiskLevel: model.RiskMedium,
		}
	}

	return model.NegotiationSuggestion{
		Summary: "Denial response: build the written appeal record.",
		Steps: []string{
			"Request the full denial rationale in writing",
			"Match each denial point to rebuttal evidence",
			"File the appeal within the policy's deadline",
		},
		Tactics:   []string{"Force specificity: no blanket denials", "Copy the department of insurance when stonewalled"},
		RiskLevel: model.RiskMedium,
	}
}
