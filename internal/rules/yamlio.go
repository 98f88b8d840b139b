package rules

import (
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/relaycrm/triage/internal/model"
)

// ruleFile is the on-disk shape for rule import/export.
type ruleFile struct {
	Rules []model.PipelineRule `yaml:"rules"`
}

// ExportYAML renders rules to the import/export document format.
func ExportYAML(list []model.PipelineRule) ([]byte, error) {
	out, err := yaml.Marshal(ruleFile{Rules: list})
	if err != nil {
		return nil, eris.Wrap(err, "rules: marshal yaml")
	}
	return out, nil
}

// ImportYAML parses and validates a rule document. Every rule must name
// a rule stage and use known operators and action types.
func ImportYAML(data []byte) ([]model.PipelineRule, error) {
	var doc ruleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "rules: parse yaml")
	}
	for i, r := range doc.Rules {
		if err := validateRule(r); err != nil {
			return nil, eris.Wrapf(err, "rules: rule %d (%s)", i, r.Name)
		}
	}
	return doc.Rules, nil
}

var validOperators = map[model.Operator]bool{
	model.OpContains: true, model.OpEquals: true,
	model.OpStartsWith: true, model.OpEndsWith: true,
	model.OpRegex: true, model.OpIn: true,
	model.OpNotIn: true, model.OpExists: true,
}

var validActionTypes = map[model.ActionType]bool{
	model.ActionTypeReject: true, model.ActionTypeArchive: true,
	model.ActionTypeSkipAI: true, model.ActionTypeSetCategory: true,
	model.ActionTypeSetPriority: true, model.ActionTypeAddTag: true,
	model.ActionTypeCreateTask: true, model.ActionTypeNotify: true,
}

func validateRule(r model.PipelineRule) error {
	switch r.Stage {
	case model.StagePreFilter, model.StageClassify, model.StageAIAnalysis:
	default:
		return eris.Errorf("invalid stage %q", r.Stage)
	}
	if r.Name == "" {
		return eris.New("rule name is required")
	}
	if err := validateConditions(r.Conditions); err != nil {
		return err
	}
	if len(r.Actions) == 0 {
		return eris.New("at least one action is required")
	}
	for _, a := range r.Actions {
		if !validActionTypes[a.Type] {
			return eris.Errorf("invalid action type %q", a.Type)
		}
	}
	return nil
}

func validateConditions(conds []model.RuleCondition) error {
	for _, c := range conds {
		if len(c.Or) > 0 {
			if err := validateConditions(c.Or); err != nil {
				return err
			}
			continue
		}
		if !validOperators[c.Operator] {
			return eris.Errorf("invalid operator %q", c.Operator)
		}
	}
	return nil
}
