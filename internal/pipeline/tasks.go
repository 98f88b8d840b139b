package pipeline

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/tenantconf"
)

// extractTasks pulls task candidates out of item content using the
// tenant's configured patterns. The first capture group of each pattern
// is the task title. Bad patterns are skipped, duplicates folded, and
// the result capped at MaxTasks.
func extractTasks(content string, tc tenantconf.TaskExtraction) []model.ExtractedTask {
	if content == "" || len(tc.Patterns) == 0 || tc.MaxTasks == 0 {
		return nil
	}

	urgent, dueIndicator := matchUrgencyMarker(content, tc.UrgencyPatterns)

	var tasks []model.ExtractedTask
	seen := make(map[string]bool)
	for _, pattern := range tc.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			zap.L().Warn("pipeline: invalid task pattern",
				zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if len(m) < 2 {
				continue
			}
			title := strings.TrimSpace(m[1])
			if len(title) < tc.MinTitleLength {
				continue
			}
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true

			priority := model.PriorityNormal
			if urgent {
				priority = model.PriorityHigh
			}
			tasks = append(tasks, model.ExtractedTask{
				Title:        title,
				Priority:     priority,
				DueIndicator: dueIndicator,
			})
			if len(tasks) >= tc.MaxTasks {
				return tasks
			}
		}
	}
	return tasks
}

// matchUrgencyMarker reports whether any urgency pattern matches the
// content and returns the matched text as the due indicator.
func matchUrgencyMarker(content string, patterns []string) (bool, string) {
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			zap.L().Warn("pipeline: invalid urgency pattern",
				zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		if m := re.FindString(content); m != "" {
			return true, m
		}
	}
	return false, ""
}
