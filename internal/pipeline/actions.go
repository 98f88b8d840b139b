package pipeline

import (
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/rules"
)

// applyActions folds a matched rule's actions into the result. Inline
// actions mutate the result directly; side-effecting actions are
// appended as deferred proposals for the persistence collaborator to
// execute. Returns true when a REJECT terminated the run.
func applyActions(actions []model.RuleAction, result *model.PipelineResult, ectx *rules.EvalContext) bool {
	for _, a := range actions {
		switch a.Type {
		case model.ActionTypeReject:
			result.IsSpam = true
			result.SkipAI = true
			result.Action = model.ActionReject
			return true
		case model.ActionTypeArchive:
			result.Action = model.ActionArchive
		case model.ActionTypeSkipAI:
			result.SkipAI = true
		case model.ActionTypeSetCategory:
			result.Category = a.Value
		case model.ActionTypeSetPriority:
			if p, ok := parsePriority(a.Value); ok {
				result.Priority = p
			} else {
				zap.L().Warn("pipeline: invalid priority in rule action",
					zap.String("value", a.Value))
			}
		case model.ActionTypeAddTag:
			if a.Value != "" && !hasTag(ectx.Tags, a.Value) {
				ectx.Tags = append(ectx.Tags, a.Value)
				result.Actions = append(result.Actions, model.DeferredAction{
					Type: a.Type,
					Data: map[string]any{"tag": a.Value},
				})
			}
		case model.ActionTypeCreateTask, model.ActionTypeNotify:
			result.Actions = append(result.Actions, model.DeferredAction{
				Type: a.Type,
				Data: a.Payload,
			})
		default:
			zap.L().Warn("pipeline: unknown action type",
				zap.String("type", string(a.Type)))
		}
	}
	return false
}

func parsePriority(v string) (model.Priority, bool) {
	switch model.Priority(v) {
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityUrgent:
		return model.Priority(v), true
	}
	return "", false
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
