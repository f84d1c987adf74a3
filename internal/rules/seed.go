package rules

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/claim-intel/internal/model"
)

//go:embed seed_rules.yaml
var seedRulesYAML []byte

// seedFile mirrors the YAML layout of the built-in ruleset.
type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Trigger     map[string]any `yaml:"trigger"`
	Action      seedAction     `yaml:"action"`
	Enabled     *bool          `yaml:"enabled"`
}

type seedAction struct {
	Type        string   `yaml:"type"`
	Actions     []string `yaml:"actions"`
	Description string   `yaml:"description"`
	Document    string   `yaml:"document"`
	Item        string   `yaml:"item"`
}

// SeedRules parses the built-in ruleset shipped with the binary.
func SeedRules() ([]model.RuleDefinition, error) {
	var file seedFile
	if err := yaml.Unmarshal(seedRulesYAML, &file); err != nil {
		return nil, eris.Wrap(err, "rules: parse seed ruleset")
	}

	defs := make([]model.RuleDefinition, 0, len(file.Rules))
	for _, sr := range file.Rules {
		trigger, err := json.Marshal(sr.Trigger)
		if err != nil {
			return nil, eris.Wrapf(err, "rules: encode seed trigger %s", sr.ID)
		}

		enabled := true
		if sr.Enabled != nil {
			enabled = *sr.Enabled
		}

		actions := make([]model.ActionType, 0, len(sr.Action.Actions))
		for _, a := range sr.Action.Actions {
			actions = append(actions, model.ActionType(a))
		}
		if len(actions) == 0 {
			actions = nil
		}

		defs = append(defs, model.RuleDefinition{
			ID:          sr.ID,
			Name:        sr.Name,
			Description: sr.Description,
			Trigger:     trigger,
			Action: model.RuleAction{
				Type:        model.ActionType(sr.Action.Type),
				Actions:     actions,
				Description: sr.Action.Description,
				Document:    sr.Action.Document,
				Item:        sr.Action.Item,
			},
			Enabled: enabled,
		})
	}
	return defs, nil
}

// RuleWriter is the store slice Seed depends on.
type RuleWriter interface {
	UpsertRule(ctx context.Context, rule model.RuleDefinition) error
}

// Seed writes the built-in ruleset into the store, overwriting any rules
// with matching ids.
func Seed(ctx context.Context, w RuleWriter) (int, error) {
	defs, err := SeedRules()
	if err != nil {
		return 0, err
	}
	for i, def := range defs {
		if err := w.UpsertRule(ctx, def); err != nil {
			return i, eris.Wrapf(err, "rules: seed rule %s", def.ID)
		}
	}
	return len(defs), nil
}
