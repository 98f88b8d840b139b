package rules

import (
	"sort"

	"github.com/relaycrm/triage/internal/model"
)

// ForStage merges built-in and tenant rules for one stage into the
// evaluation order: descending priority, built-ins first on ties.
// Disabled rules and rules for other stages are dropped.
func ForStage(stage model.Stage, builtin, tenant []model.PipelineRule) []model.PipelineRule {
	merged := make([]model.PipelineRule, 0, len(builtin)+len(tenant))
	for _, r := range builtin {
		if r.Stage == stage && r.Enabled {
			merged = append(merged, r)
		}
	}
	for _, r := range tenant {
		if r.Stage == stage && r.Enabled {
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Priority != merged[j].Priority {
			return merged[i].Priority > merged[j].Priority
		}
		return merged[i].Builtin && !merged[j].Builtin
	})
	return merged
}
