package rules

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
)

// Matches reports whether every condition of the rule holds for the
// context. A rule with no conditions always matches.
func Matches(rule model.PipelineRule, ctx *EvalContext) bool {
	for _, cond := range rule.Conditions {
		if !evalCondition(cond, ctx) {
			return false
		}
	}
	return true
}

// evalCondition evaluates one condition. A condition with a non-empty
// Or group is the disjunction of its members; otherwise it is a single
// field predicate. Unknown or missing fields fail the condition, for
// every operator including exists.
func evalCondition(cond model.RuleCondition, ctx *EvalContext) bool {
	if len(cond.Or) > 0 {
		for _, sub := range cond.Or {
			if evalCondition(sub, ctx) {
				return true
			}
		}
		return false
	}

	value, ok := ctx.Resolve(cond.Field)
	if !ok {
		return false
	}

	if cond.Operator == model.OpExists {
		return value != ""
	}

	targets := cond.Targets()
	if len(targets) == 0 {
		return false
	}

	if !cond.CaseSensitive {
		value = strings.ToLower(value)
	}

	switch cond.Operator {
	case model.OpContains:
		return anyTarget(targets, cond.CaseSensitive, func(t string) bool {
			return strings.Contains(value, t)
		})
	case model.OpEquals, model.OpIn:
		return anyTarget(targets, cond.CaseSensitive, func(t string) bool {
			return value == t
		})
	case model.OpNotIn:
		return !anyTarget(targets, cond.CaseSensitive, func(t string) bool {
			return value == t
		})
	case model.OpStartsWith:
		return anyTarget(targets, cond.CaseSensitive, func(t string) bool {
			return strings.HasPrefix(value, t)
		})
	case model.OpEndsWith:
		return anyTarget(targets, cond.CaseSensitive, func(t string) bool {
			return strings.HasSuffix(value, t)
		})
	case model.OpRegex:
		return anyRegex(targets, cond.CaseSensitive, value)
	default:
		zap.L().Warn("rules: unknown operator", zap.String("operator", string(cond.Operator)))
		return false
	}
}

func anyTarget(targets []string, caseSensitive bool, pred func(string) bool) bool {
	for _, t := range targets {
		if !caseSensitive {
			t = strings.ToLower(t)
		}
		if pred(t) {
			return true
		}
	}
	return false
}

// anyRegex matches value against each target pattern. A pattern that
// fails to compile is logged and skipped, never fatal.
func anyRegex(targets []string, caseSensitive bool, value string) bool {
	for _, t := range targets {
		pattern := t
		if !caseSensitive && !strings.HasPrefix(pattern, "(?i)") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			zap.L().Warn("rules: invalid regex pattern",
				zap.String("pattern", t), zap.Error(err))
			continue
		}
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
