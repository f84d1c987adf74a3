package model

import "encoding/json"

// ActionType identifies a rule-driven effect. The set is closed: unknown
// strings round-trip but match nothing downstream.
type ActionType string

const (
	ActionRecommend       ActionType = "recommend"
	ActionApprove         ActionType = "approve"
	ActionDeny            ActionType = "deny"
	ActionFlag            ActionType = "flag"
	ActionFlagRisk        ActionType = "flag_risk"
	ActionRequireDocument ActionType = "require_document"
	ActionAddLineItem     ActionType = "add_line_item"
	ActionEscalate        ActionType = "escalate"
)

// RuleAction describes the effect of a triggered rule. Type is the primary
// effect; Actions carries additional effects in order. The payload fields
// feed the planner's synthesized suggestions.
type RuleAction struct {
	Type        ActionType   `json:"type,omitempty"`
	Actions     []ActionType `json:"actions,omitempty"`
	Description string       `json:"description,omitempty"`
	Document    string       `json:"document,omitempty"`
	Item        string       `json:"item,omitempty"`
}

// Types flattens the primary type and the additional actions, in order.
func (a RuleAction) Types() []ActionType {
	var out []ActionType
	if a.Type != "" {
		out = append(out, a.Type)
	}
	out = append(out, a.Actions...)
	return out
}

// RuleDefinition is a stored business rule. Trigger holds the raw condition
// tree as persisted; the rules package parses it once into a typed AST.
type RuleDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Trigger     json.RawMessage `json:"trigger"`
	Action      RuleAction      `json:"action"`
	Enabled     bool            `json:"enabled"`
}
