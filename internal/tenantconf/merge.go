package tenantconf

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
)

// Merge applies stored per-section overrides onto a copy of the
// defaults. Each section merges field by field: a field present in the
// override replaces the default, an absent field keeps it. Arrays
// replace wholesale. A section that fails to decode keeps its default
// and is logged, never fatal.
func Merge(overrides map[string]json.RawMessage) *TenantConfig {
	cfg := Defaults()
	for name, raw := range overrides {
		if !ValidSection(name) {
			zap.L().Warn("tenantconf: unknown section ignored", zap.String("section", name))
			continue
		}
		if err := mergeSection(cfg, name, raw); err != nil {
			zap.L().Warn("tenantconf: malformed section override, using default",
				zap.String("section", name), zap.Error(err))
		}
	}
	return cfg
}

func mergeSection(cfg *TenantConfig, name string, raw json.RawMessage) error {
	switch name {
	case SectionClassifications:
		return mergeClassifications(&cfg.Classifications, raw)
	case SectionAIParams:
		return mergeAIParams(&cfg.AIParams, raw)
	case SectionThresholds:
		return mergeThresholds(&cfg.Thresholds, raw)
	case SectionKeywords:
		return mergeKeywords(&cfg.Keywords, raw)
	case SectionDomains:
		return mergeDomains(&cfg.Domains, raw)
	case SectionScheduling:
		return mergeScheduling(&cfg.Scheduling, raw)
	case SectionContentLimits:
		return mergeContentLimits(&cfg.ContentLimits, raw)
	case SectionPostActions:
		return mergePostActions(&cfg.PostActions, raw)
	case SectionSystemRules:
		return mergeSystemRules(&cfg.SystemRules, raw)
	case SectionTaskExtraction:
		return mergeTaskExtraction(&cfg.TaskExtraction, raw)
	}
	return eris.Errorf("tenantconf: no merger for section %s", name)
}

// setIf overwrites dst when the override field was present. A present
// but empty array still replaces, so tenants can clear a default list.
func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func mergeClassifications(dst *Classifications, raw json.RawMessage) error {
	var over struct {
		ValidClasses *[]string `json:"validClasses"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode classifications")
	}
	setIf(&dst.ValidClasses, over.ValidClasses)
	return nil
}

func mergeAIParams(dst *AIParams, raw json.RawMessage) error {
	var over struct {
		Model       *string  `json:"model"`
		Temperature *float64 `json:"temperature"`
		MaxTokens   *int     `json:"maxTokens"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode aiParams")
	}
	setIf(&dst.Model, over.Model)
	setIf(&dst.Temperature, over.Temperature)
	setIf(&dst.MaxTokens, over.MaxTokens)
	return nil
}

func mergeThresholds(dst *Thresholds, raw json.RawMessage) error {
	var over struct {
		UrgencyHigh           *int `json:"urgencyHigh"`
		UrgencyUrgent         *int `json:"urgencyUrgent"`
		SuggestionConfidence  *int `json:"suggestionConfidence"`
		AutoApproveConfidence *int `json:"autoApproveConfidence"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode thresholds")
	}
	setIf(&dst.UrgencyHigh, over.UrgencyHigh)
	setIf(&dst.UrgencyUrgent, over.UrgencyUrgent)
	setIf(&dst.SuggestionConfidence, over.SuggestionConfidence)
	setIf(&dst.AutoApproveConfidence, over.AutoApproveConfidence)
	return nil
}

func mergeKeywords(dst *Keywords, raw json.RawMessage) error {
	var over struct {
		Urgency           *[]string `json:"urgency"`
		SentimentPositive *[]string `json:"sentimentPositive"`
		SentimentNegative *[]string `json:"sentimentNegative"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode keywords")
	}
	setIf(&dst.Urgency, over.Urgency)
	setIf(&dst.SentimentPositive, over.SentimentPositive)
	setIf(&dst.SentimentNegative, over.SentimentNegative)
	return nil
}

func mergeDomains(dst *Domains, raw json.RawMessage) error {
	var over struct {
		FreeEmailDomains *[]string `json:"freeEmailDomains"`
		BlockedDomains   *[]string `json:"blockedDomains"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode domains")
	}
	setIf(&dst.FreeEmailDomains, over.FreeEmailDomains)
	setIf(&dst.BlockedDomains, over.BlockedDomains)
	return nil
}

func mergeScheduling(dst *Scheduling, raw json.RawMessage) error {
	var over struct {
		PollIntervalSecs *int `json:"pollIntervalSecs"`
		RetryDelaySecs   *int `json:"retryDelaySecs"`
		MaxRetries       *int `json:"maxRetries"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode scheduling")
	}
	setIf(&dst.PollIntervalSecs, over.PollIntervalSecs)
	setIf(&dst.RetryDelaySecs, over.RetryDelaySecs)
	setIf(&dst.MaxRetries, over.MaxRetries)
	return nil
}

func mergeContentLimits(dst *ContentLimits, raw json.RawMessage) error {
	var over struct {
		AIContentLimit   *int `json:"aiContentLimit"`
		MinContentLength *int `json:"minContentLength"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode contentLimits")
	}
	setIf(&dst.AIContentLimit, over.AIContentLimit)
	setIf(&dst.MinContentLength, over.MinContentLength)
	return nil
}

// mergePostActions merges per class: an overridden class keeps the
// defaults of the flags it does not mention, untouched classes stay.
func mergePostActions(dst *PostActions, raw json.RawMessage) error {
	var over map[string]struct {
		RAG              *bool `json:"rag"`
		Flow             *bool `json:"flow"`
		ExtractTasks     *bool `json:"extractTasks"`
		SuggestBlacklist *bool `json:"suggestBlacklist"`
		AutoBlacklist    *bool `json:"autoBlacklist"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode postActions")
	}
	merged := make(PostActions, len(*dst)+len(over))
	for class, actions := range *dst {
		merged[class] = actions
	}
	for class, o := range over {
		cur := merged[class]
		setIf(&cur.RAG, o.RAG)
		setIf(&cur.Flow, o.Flow)
		setIf(&cur.ExtractTasks, o.ExtractTasks)
		setIf(&cur.SuggestBlacklist, o.SuggestBlacklist)
		setIf(&cur.AutoBlacklist, o.AutoBlacklist)
		merged[class] = cur
	}
	*dst = merged
	return nil
}

func mergeSystemRules(dst *SystemRules, raw json.RawMessage) error {
	var over struct {
		PreFilter *[]model.PipelineRule `json:"preFilter"`
		Classify  *[]model.PipelineRule `json:"classify"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode systemRules")
	}
	setIf(&dst.PreFilter, over.PreFilter)
	setIf(&dst.Classify, over.Classify)
	return nil
}

func mergeTaskExtraction(dst *TaskExtraction, raw json.RawMessage) error {
	var over struct {
		Patterns        *[]string `json:"patterns"`
		UrgencyPatterns *[]string `json:"urgencyPatterns"`
		MaxTasks        *int      `json:"maxTasks"`
		MinTitleLength  *int      `json:"minTitleLength"`
	}
	if err := json.Unmarshal(raw, &over); err != nil {
		return eris.Wrap(err, "tenantconf: decode taskExtraction")
	}
	setIf(&dst.Patterns, over.Patterns)
	setIf(&dst.UrgencyPatterns, over.UrgencyPatterns)
	setIf(&dst.MaxTasks, over.MaxTasks)
	setIf(&dst.MinTitleLength, over.MinTitleLength)
	return nil
}
