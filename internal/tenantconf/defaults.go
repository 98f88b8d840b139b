package tenantconf

import "github.com/relaycrm/triage/internal/model"

// Defaults returns a fresh copy of the compiled-in configuration. Every
// section is populated so a tenant with no overrides gets a fully
// working pipeline.
func Defaults() *TenantConfig {
	return &TenantConfig{
		Classifications: Classifications{
			ValidClasses: []string{
				"inquiry", "complaint", "invoice", "order",
				"support", "newsletter", "spam", "other",
			},
		},
		AIParams: AIParams{
			Model:       "",
			Temperature: 0.3,
			MaxTokens:   800,
		},
		Thresholds: Thresholds{
			UrgencyHigh:           70,
			UrgencyUrgent:         90,
			SuggestionConfidence:  60,
			AutoApproveConfidence: 90,
		},
		Keywords: Keywords{
			Urgency: []string{
				"urgent", "asap", "immediately", "deadline",
				"today", "critical", "important",
			},
			SentimentPositive: []string{
				"thanks", "thank you", "great", "excellent",
				"appreciate", "pleased", "happy",
			},
			SentimentNegative: []string{
				"complaint", "problem", "disappointed", "unacceptable",
				"refund", "cancel", "frustrated", "angry",
			},
		},
		Domains: Domains{
			FreeEmailDomains: []string{
				"gmail.com", "yahoo.com", "hotmail.com",
				"outlook.com", "icloud.com", "aol.com",
			},
			BlockedDomains: nil,
		},
		Scheduling: Scheduling{
			PollIntervalSecs: 300,
			RetryDelaySecs:   60,
			MaxRetries:       3,
		},
		ContentLimits: ContentLimits{
			AIContentLimit:   4000,
			MinContentLength: 10,
		},
		PostActions: PostActions{
			"inquiry":    {RAG: true, Flow: true, ExtractTasks: true},
			"complaint":  {RAG: true, Flow: true, ExtractTasks: true},
			"invoice":    {ExtractTasks: true},
			"order":      {RAG: true, ExtractTasks: true},
			"support":    {RAG: true, Flow: true, ExtractTasks: true},
			"newsletter": {SuggestBlacklist: true},
			"spam":       {AutoBlacklist: true},
		},
		SystemRules: SystemRules{
			PreFilter: defaultPreFilterRules(),
			Classify:  defaultClassifyRules(),
		},
		TaskExtraction: TaskExtraction{
			Patterns: []string{
				`(?i)please\s+(.{5,80}?)(?:\.|$)`,
				`(?i)can you\s+(.{5,80}?)(?:\?|\.|$)`,
				`(?i)could you\s+(.{5,80}?)(?:\?|\.|$)`,
				`(?i)need(?:s)? to\s+(.{5,80}?)(?:\.|$)`,
				`(?i)action required[:\s]+(.{5,80}?)(?:\.|$)`,
			},
			UrgencyPatterns: []string{
				`(?i)\basap\b`,
				`(?i)\burgent\b`,
				`(?i)\bby (?:today|tomorrow|eod|end of day)\b`,
			},
			MaxTasks:       5,
			MinTitleLength: 5,
		},
	}
}

// Built-in rules always run first within their stage. They carry the
// Builtin flag so the rule surface never persists or edits them.

func defaultPreFilterRules() []model.PipelineRule {
	return []model.PipelineRule{
		{
			ID:       "sys-prefilter-unsubscribe",
			Name:     "Bulk mail with unsubscribe footer",
			Stage:    model.StagePreFilter,
			Priority: 1000,
			Conditions: []model.RuleCondition{
				{Field: "body", Operator: model.OpContains, Value: "unsubscribe"},
				{Field: "body", Operator: model.OpContains, Value: "click here"},
			},
			Actions: []model.RuleAction{
				{Type: model.ActionTypeSetCategory, Value: "newsletter"},
				{Type: model.ActionTypeSkipAI},
			},
			Builtin: true,
			Enabled: true,
		},
		{
			ID:       "sys-prefilter-noreply",
			Name:     "Automated no-reply sender",
			Stage:    model.StagePreFilter,
			Priority: 900,
			Conditions: []model.RuleCondition{
				{Field: "fromEmail", Operator: model.OpStartsWith, Values: []string{"no-reply@", "noreply@", "donotreply@"}},
			},
			Actions: []model.RuleAction{
				{Type: model.ActionTypeSkipAI},
			},
			Builtin: true,
			Enabled: true,
		},
	}
}

func defaultClassifyRules() []model.PipelineRule {
	return []model.PipelineRule{
		{
			ID:       "sys-classify-invoice",
			Name:     "Invoice keywords in subject",
			Stage:    model.StageClassify,
			Priority: 1000,
			Conditions: []model.RuleCondition{
				{Field: "subject", Operator: model.OpContains, Values: []string{"invoice", "payment due", "faktura"}},
			},
			Actions: []model.RuleAction{
				{Type: model.ActionTypeSetCategory, Value: "invoice"},
			},
			Builtin: true,
			Enabled: true,
		},
		{
			ID:       "sys-classify-vip",
			Name:     "Escalate VIP senders",
			Stage:    model.StageClassify,
			Priority: 900,
			Conditions: []model.RuleCondition{
				{Field: "isVIP", Operator: model.OpEquals, Value: "true"},
			},
			Actions: []model.RuleAction{
				{Type: model.ActionTypeSetPriority, Value: string(model.PriorityHigh)},
			},
			Builtin: true,
			Enabled: true,
		},
	}
}
