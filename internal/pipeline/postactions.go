package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/rules"
	"github.com/relaycrm/triage/internal/tenantconf"
)

// Blacklist suggestion confidence levels. Auto-blacklist comes from a
// hard spam classification so it is near-certain; suggest-blacklist is
// a softer newsletter signal that needs review.
const (
	autoBlacklistConfidence    = 95
	suggestBlacklistConfidence = 70
)

// runPostActions executes the per-category post-stage actions after the
// run reaches COMPLETED: task extraction and blacklist proposals.
// Faults are logged, never fatal.
func (p *Pipeline) runPostActions(ctx context.Context, cfg *tenantconf.TenantConfig, ectx *rules.EvalContext, result *model.PipelineResult) {
	class, ok := cfg.PostActions[result.Category]
	if !ok {
		return
	}

	if class.ExtractTasks {
		tasks := extractTasks(ectx.Item.Body, cfg.TaskExtraction)
		result.ExtractedTasks = tasks
		for _, task := range tasks {
			result.Actions = append(result.Actions, model.DeferredAction{
				Type: model.ActionTypeCreateTask,
				Data: map[string]any{
					"title":         task.Title,
					"priority":      string(task.Priority),
					"due_indicator": task.DueIndicator,
				},
			})
		}
	}

	switch {
	case class.AutoBlacklist:
		p.proposeBlacklist(ctx, cfg, ectx, result, model.SuggestionAutoApproved, autoBlacklistConfidence,
			fmt.Sprintf("sender domain classified as %s", result.Category))
	case class.SuggestBlacklist:
		p.proposeBlacklist(ctx, cfg, ectx, result, model.SuggestionPending, suggestBlacklistConfidence,
			fmt.Sprintf("recurring %s sender", result.Category))
	}
}

// proposeBlacklist raises a domain-blacklist suggestion for the sender.
// Free email domains are exempt: blocking gmail.com over one spam mail
// would block every gmail sender.
func (p *Pipeline) proposeBlacklist(ctx context.Context, cfg *tenantconf.TenantConfig, ectx *rules.EvalContext, result *model.PipelineResult, status model.SuggestionStatus, confidence int, reasoning string) {
	if p.suggestions == nil {
		return
	}
	domain := ectx.SenderDomain
	if domain == "" || isFreeEmailDomain(domain, cfg.Domains.FreeEmailDomains) {
		return
	}

	if confidence >= cfg.Thresholds.AutoApproveConfidence {
		status = model.SuggestionAutoApproved
	}

	s := &model.Suggestion{
		ID:       uuid.New().String(),
		TenantID: result.TenantID,
		Context:  "BLACKLIST_DOMAIN",
		Payload: map[string]any{
			"domain":  domain,
			"item_id": result.ItemID,
		},
		Confidence: confidence,
		Reasoning:  reasoning,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.suggestions.InsertSuggestion(ctx, s); err != nil {
		zap.L().Warn("pipeline: store suggestion failed",
			zap.String("domain", domain), zap.Error(err))
		return
	}

	if status == model.SuggestionPending && p.review != nil {
		if err := p.review.Publish(ctx, s); err != nil {
			zap.L().Warn("pipeline: publish review card failed",
				zap.String("suggestion_id", s.ID), zap.Error(err))
		}
	}
}

func isFreeEmailDomain(domain string, free []string) bool {
	for _, d := range free {
		if d == domain {
			return true
		}
	}
	return false
}
