package rules

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
)

// RuleSource supplies rule definitions, usually the store.
type RuleSource interface {
	ListRules(ctx context.Context) ([]model.RuleDefinition, error)
}

// CompiledRule pairs a definition with its parsed trigger.
type CompiledRule struct {
	Def     model.RuleDefinition
	Trigger Trigger
}

// Options tunes engine behavior.
type Options struct {
	// DedupeActions collapses repeated action types contributed by
	// multiple rules. Off by default: repeated recommendations are
	// treated as reinforcement until product says otherwise.
	DedupeActions bool
}

// Engine evaluates compiled rules against claim contexts.
type Engine struct {
	rules []CompiledRule
	opts  Options
}

// NewEngine compiles the given definitions. A definition whose trigger does
// not parse is compiled to Never and logged; it can never fire but stays
// visible in listings.
func NewEngine(defs []model.RuleDefinition, opts Options) *Engine {
	compiled := make([]CompiledRule, 0, len(defs))
	for _, def := range defs {
		trigger, err := ParseTrigger(def.Trigger)
		if err != nil {
			zap.L().Warn("rules: trigger failed to parse, rule disabled",
				zap.String("rule_id", def.ID),
				zap.Error(err),
			)
			trigger = Never{}
		}
		compiled = append(compiled, CompiledRule{Def: def, Trigger: trigger})
	}
	return &Engine{rules: compiled, opts: opts}
}

// Load lists rules from the source and compiles them.
func Load(ctx context.Context, source RuleSource, opts Options) (*Engine, error) {
	defs, err := source.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	return NewEngine(defs, opts), nil
}

// Rules returns the compiled rules in load order.
func (e *Engine) Rules() []CompiledRule {
	return e.rules
}

// EvaluateForClaim returns the enabled rules whose trigger fires against
// the context, in load order.
func (e *Engine) EvaluateForClaim(claimCtx model.ClaimContext) []model.RuleDefinition {
	var triggered []model.RuleDefinition
	for _, r := range e.rules {
		if !r.Def.Enabled {
			continue
		}
		if r.Trigger.Eval(claimCtx) {
			triggered = append(triggered, r.Def)
		}
	}
	return triggered
}

// ExecuteActions flattens the action types of the triggered rules into one
// ordered list. Duplicates across rules are preserved unless DedupeActions
// is set.
func (e *Engine) ExecuteActions(triggered []model.RuleDefinition) []model.ActionType {
	var out []model.ActionType
	seen := map[model.ActionType]bool{}
	for _, rule := range triggered {
		for _, t := range rule.Action.Types() {
			if e.opts.DedupeActions {
				if seen[t] {
					continue
				}
				seen[t] = true
			}
			out = append(out, t)
		}
	}
	return out
}
