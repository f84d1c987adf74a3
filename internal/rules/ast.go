// Package rules implements the condition DSL that decides which business
// rules trigger for a claim. Triggers are persisted as a small JSON tree
// and parsed once into a typed AST. Evaluation never fails: anything
// malformed or unresolvable simply does not trigger.
package rules

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claim-intel/internal/model"
)

// Op is a comparison operator in the trigger DSL.
type Op string

const (
	OpGT       Op = ">"
	OpGTE      Op = ">="
	OpLT       Op = "<"
	OpLTE      Op = "<="
	OpEQ       Op = "=="
	OpNEQ      Op = "!="
	OpContains Op = "contains"
	OpIn       Op = "in"
)

// Trigger is a parsed condition tree. The variants are closed: Always, All,
// Any, Cond and Never.
type Trigger interface {
	// Eval reports whether the trigger fires against the context.
	// It fails closed: missing paths, unknown operators and type
	// mismatches all evaluate to false.
	Eval(ctx model.ClaimContext) bool
}

// Always fires unconditionally.
type Always struct{}

func (Always) Eval(model.ClaimContext) bool { return true }

// Never is the compiled form of an unparseable trigger.
type Never struct{}

func (Never) Eval(model.ClaimContext) bool { return false }

// All fires when every child fires (AND). An empty All fires.
type All struct {
	Conds []Trigger
}

func (a All) Eval(ctx model.ClaimContext) bool {
	for _, c := range a.Conds {
		if !c.Eval(ctx) {
			return false
		}
	}
	return true
}

// Any fires when at least one child fires (OR). An empty Any does not fire.
type Any struct {
	Conds []Trigger
}

func (a Any) Eval(ctx model.ClaimContext) bool {
	for _, c := range a.Conds {
		if c.Eval(ctx) {
			return true
		}
	}
	return false
}

// Cond is a single path/op/value comparison.
type Cond struct {
	Path  string
	Op    Op
	Value any
}

func (c Cond) Eval(ctx model.ClaimContext) bool {
	// An incomplete condition never fires. There is no null-comparison
	// form, so a missing value is incomplete too.
	if c.Path == "" || c.Op == "" || c.Value == nil {
		return false
	}
	val, ok := Resolve(ctx, c.Path)
	if !ok {
		return false
	}
	return compare(val, c.Op, c.Value)
}

// rawTrigger mirrors the persisted JSON shape for one node.
type rawTrigger struct {
	Always *bool           `json:"always,omitempty"`
	All    json.RawMessage `json:"all,omitempty"`
	Any    json.RawMessage `json:"any,omitempty"`
	Path   string          `json:"path,omitempty"`
	Op     string          `json:"op,omitempty"`
	Value  any             `json:"value,omitempty"`
}

// ParseTrigger parses a persisted trigger tree into its typed form.
// Structural errors (not valid JSON, non-array all/any) are returned so the
// engine can log and compile the rule to Never; a condition that is merely
// incomplete parses successfully and fails closed at evaluation time.
func ParseTrigger(raw json.RawMessage) (Trigger, error) {
	if len(raw) == 0 {
		return Never{}, eris.New("rules: empty trigger")
	}

	var node rawTrigger
	if err := json.Unmarshal(raw, &node); err != nil {
		return Never{}, eris.Wrap(err, "rules: decode trigger")
	}

	switch {
	case node.Always != nil && *node.Always:
		return Always{}, nil
	case len(node.All) > 0:
		conds, err := parseList(node.All)
		if err != nil {
			return Never{}, eris.Wrap(err, "rules: parse all")
		}
		return All{Conds: conds}, nil
	case len(node.Any) > 0:
		conds, err := parseList(node.Any)
		if err != nil {
			return Never{}, eris.Wrap(err, "rules: parse any")
		}
		return Any{Conds: conds}, nil
	default:
		return Cond{Path: node.Path, Op: Op(node.Op), Value: node.Value}, nil
	}
}

func parseList(raw json.RawMessage) ([]Trigger, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, eris.Wrap(err, "rules: decode condition list")
	}
	conds := make([]Trigger, 0, len(items))
	for _, item := range items {
		t, err := ParseTrigger(item)
		if err != nil {
			return nil, err
		}
		conds = append(conds, t)
	}
	return conds, nil
}
