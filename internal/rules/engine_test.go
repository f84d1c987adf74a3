package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claim-intel/internal/model"
)

func mustTrigger(t *testing.T, src string) Trigger {
	t.Helper()
	trigger, err := ParseTrigger(json.RawMessage(src))
	require.NoError(t, err)
	return trigger
}

func TestTrigger_Eval(t *testing.T) {
	ctx := model.ClaimContext{
		"roof.slope":      10.0,
		"roof.age_years":  18,
		"roof.material":   "wood_shake",
		"damage.cause":    "hail",
		"estimate.value":  62000.0,
		"flags":           []any{"code_upgrade", "priority"},
		"storm.in_swath":  true,
		"claim.carrier":   "State Farm",
		"claim.nil_field": nil,
		"claim.denial":    "",
	}

	tests := []struct {
		name    string
		trigger string
		want    bool
	}{
		{"always", `{"always":true}`, true},
		{"gt true", `{"path":"roof.slope","op":">","value":9}`, true},
		{"gt false", `{"path":"roof.slope","op":">","value":12}`, false},
		{"gte boundary", `{"path":"roof.age_years","op":">=","value":18}`, true},
		{"lt", `{"path":"estimate.value","op":"<","value":100000}`, true},
		{"lte false", `{"path":"estimate.value","op":"<=","value":50000}`, false},
		{"eq string", `{"path":"roof.material","op":"==","value":"wood_shake"}`, true},
		{"eq bool", `{"path":"storm.in_swath","op":"==","value":true}`, true},
		{"neq", `{"path":"damage.cause","op":"!=","value":"fire"}`, true},
		{"contains", `{"path":"flags","op":"contains","value":"code_upgrade"}`, true},
		{"contains miss", `{"path":"flags","op":"contains","value":"fraud"}`, false},
		{"contains substring", `{"path":"damage.cause","op":"contains","value":"ai"}`, true},
		{"in", `{"path":"damage.cause","op":"in","value":["hail","wind"]}`, true},
		{"in miss", `{"path":"damage.cause","op":"in","value":["fire","flood"]}`, false},
		{"in non-array value", `{"path":"damage.cause","op":"in","value":"hail"}`, false},
		{"unknown op", `{"path":"roof.slope","op":"~=","value":9}`, false},
		{"missing path", `{"path":"roof.pitch_class","op":"==","value":"steep"}`, false},
		{"nil value fails closed", `{"path":"claim.nil_field","op":"==","value":""}`, false},
		{"missing op", `{"path":"roof.slope","value":9}`, false},
		{"missing path field", `{"op":">","value":9}`, false},
		{"missing value eq empty context", `{"path":"claim.denial","op":"=="}`, false},
		{"missing value neq non-empty context", `{"path":"claim.carrier","op":"!="}`, false},
		{"numeric compare on string", `{"path":"claim.carrier","op":">","value":5}`, false},
		{"all both true", `{"all":[{"path":"roof.slope","op":">","value":9},{"path":"damage.cause","op":"==","value":"hail"}]}`, true},
		{"all one false", `{"all":[{"path":"roof.slope","op":">","value":9},{"path":"damage.cause","op":"==","value":"fire"}]}`, false},
		{"any one true", `{"any":[{"path":"damage.cause","op":"==","value":"fire"},{"path":"roof.slope","op":">","value":9}]}`, true},
		{"any all false", `{"any":[{"path":"damage.cause","op":"==","value":"fire"},{"path":"roof.slope","op":"<","value":1}]}`, false},
		{"nested all in any", `{"any":[{"all":[{"path":"storm.in_swath","op":"==","value":true},{"path":"estimate.value","op":">","value":50000}]}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustTrigger(t, tt.trigger).Eval(ctx))
		})
	}
}

func TestParseTrigger_Malformed(t *testing.T) {
	_, err := ParseTrigger(json.RawMessage(`{"all":"not-an-array"}`))
	assert.Error(t, err)

	_, err = ParseTrigger(json.RawMessage(`{{`))
	assert.Error(t, err)

	_, err = ParseTrigger(nil)
	assert.Error(t, err)
}

func TestResolve_NestedMaps(t *testing.T) {
	ctx := model.ClaimContext{
		"roof": map[string]any{
			"slope": 7.0,
			"layers": map[string]any{
				"count": 2,
			},
		},
	}

	v, ok := Resolve(ctx, "roof.slope")
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	v, ok = Resolve(ctx, "roof.layers.count")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = Resolve(ctx, "roof.missing.count")
	assert.False(t, ok)

	_, ok = Resolve(ctx, "roof.slope.deeper")
	assert.False(t, ok)
}

func ruleDef(id string, trigger string, action model.RuleAction, enabled bool) model.RuleDefinition {
	return model.RuleDefinition{
		ID:      id,
		Name:    id,
		Trigger: json.RawMessage(trigger),
		Action:  action,
		Enabled: enabled,
	}
}

func TestEngine_EvaluateForClaim(t *testing.T) {
	defs := []model.RuleDefinition{
		ruleDef("a", `{"path":"roof.slope","op":">","value":9}`, model.RuleAction{Type: model.ActionFlagRisk}, true),
		ruleDef("b", `{"always":true}`, model.RuleAction{Type: model.ActionRecommend}, true),
		ruleDef("c", `{"always":true}`, model.RuleAction{Type: model.ActionDeny}, false),
		ruleDef("d", `not json`, model.RuleAction{Type: model.ActionFlag}, true),
	}
	engine := NewEngine(defs, Options{})

	triggered := engine.EvaluateForClaim(model.ClaimContext{"roof.slope": 12.0})
	require.Len(t, triggered, 2)
	assert.Equal(t, "a", triggered[0].ID)
	assert.Equal(t, "b", triggered[1].ID)

	// Disabled and unparseable rules never fire.
	triggered = engine.EvaluateForClaim(model.ClaimContext{})
	require.Len(t, triggered, 1)
	assert.Equal(t, "b", triggered[0].ID)
}

func TestEngine_ExecuteActions_PreservesDuplicates(t *testing.T) {
	triggered := []model.RuleDefinition{
		{ID: "a", Action: model.RuleAction{Type: model.ActionRecommend, Actions: []model.ActionType{model.ActionFlag}}},
		{ID: "b", Action: model.RuleAction{Type: model.ActionRecommend}},
		{ID: "c", Action: model.RuleAction{Actions: []model.ActionType{model.ActionFlag, model.ActionEscalate}}},
	}

	engine := NewEngine(nil, Options{})
	got := engine.ExecuteActions(triggered)
	assert.Equal(t, []model.ActionType{
		model.ActionRecommend, model.ActionFlag,
		model.ActionRecommend,
		model.ActionFlag, model.ActionEscalate,
	}, got)

	deduping := NewEngine(nil, Options{DedupeActions: true})
	got = deduping.ExecuteActions(triggered)
	assert.Equal(t, []model.ActionType{
		model.ActionRecommend, model.ActionFlag, model.ActionEscalate,
	}, got)
}

func TestSeedRules_ParseAndCompile(t *testing.T) {
	defs, err := SeedRules()
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	for _, def := range defs {
		_, err := ParseTrigger(def.Trigger)
		assert.NoError(t, err, "seed rule %s", def.ID)
		assert.NotEmpty(t, def.Action.Types(), "seed rule %s has no actions", def.ID)
	}

	// Seeded rules should actually fire on a representative storm claim.
	engine := NewEngine(defs, Options{})
	triggered := engine.EvaluateForClaim(model.ClaimContext{
		"storm.in_swath": true,
		"damage.cause":   "hail",
		"roof.slope":     10.0,
		"estimate.value": 62000.0,
	})
	assert.NotEmpty(t, triggered)
}
