// Package tenantconf resolves a tenant's effective pipeline
// configuration by deep-merging stored overrides onto compiled-in
// defaults, with a TTL-bounded in-memory cache.
package tenantconf

import "github.com/relaycrm/triage/internal/model"

// Section names accepted by the configuration surface. Each maps to one
// independently overridable block of TenantConfig.
const (
	SectionClassifications = "classifications"
	SectionAIParams        = "aiParams"
	SectionThresholds      = "thresholds"
	SectionKeywords        = "keywords"
	SectionDomains         = "domains"
	SectionScheduling      = "scheduling"
	SectionContentLimits   = "contentLimits"
	SectionPostActions     = "postActions"
	SectionSystemRules     = "systemRules"
	SectionTaskExtraction  = "taskExtraction"
)

// SectionNames lists every valid section in a stable order.
var SectionNames = []string{
	SectionClassifications,
	SectionAIParams,
	SectionThresholds,
	SectionKeywords,
	SectionDomains,
	SectionScheduling,
	SectionContentLimits,
	SectionPostActions,
	SectionSystemRules,
	SectionTaskExtraction,
}

// ValidSection reports whether name is a known section.
func ValidSection(name string) bool {
	for _, s := range SectionNames {
		if s == name {
			return true
		}
	}
	return false
}

// Classifications lists the category labels a tenant accepts.
type Classifications struct {
	ValidClasses []string `json:"validClasses"`
}

// AIParams are the default generation parameters for the AI stage.
type AIParams struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// Thresholds holds the numeric cutoffs used when mapping scores to
// priorities and when deciding whether suggestions need review.
type Thresholds struct {
	UrgencyHigh           int `json:"urgencyHigh"`
	UrgencyUrgent         int `json:"urgencyUrgent"`
	SuggestionConfidence  int `json:"suggestionConfidence"`
	AutoApproveConfidence int `json:"autoApproveConfidence"`
}

// Keywords holds the keyword lists driving the heuristic analysis.
type Keywords struct {
	Urgency           []string `json:"urgency"`
	SentimentPositive []string `json:"sentimentPositive"`
	SentimentNegative []string `json:"sentimentNegative"`
}

// Domains holds sender-domain lists used by built-in rules and the
// blacklist post actions.
type Domains struct {
	FreeEmailDomains []string `json:"freeEmailDomains"`
	BlockedDomains   []string `json:"blockedDomains"`
}

// Scheduling configures the polling cadence of the ingestion
// collaborator. The pipeline itself only reads it for retry pacing.
type Scheduling struct {
	PollIntervalSecs int `json:"pollIntervalSecs"`
	RetryDelaySecs   int `json:"retryDelaySecs"`
	MaxRetries       int `json:"maxRetries"`
}

// ContentLimits bounds how much item content reaches the AI backend.
type ContentLimits struct {
	AIContentLimit   int `json:"aiContentLimit"`
	MinContentLength int `json:"minContentLength"`
}

// ClassActions selects which post-stage actions run for one
// classification category.
type ClassActions struct {
	RAG              bool `json:"rag"`
	Flow             bool `json:"flow"`
	ExtractTasks     bool `json:"extractTasks"`
	SuggestBlacklist bool `json:"suggestBlacklist"`
	AutoBlacklist    bool `json:"autoBlacklist"`
}

// PostActions maps classification category to its post-stage actions.
type PostActions map[string]ClassActions

// SystemRules are the built-in rules compiled from configuration.
// They always run before tenant rules within each stage.
type SystemRules struct {
	PreFilter []model.PipelineRule `json:"preFilter"`
	Classify  []model.PipelineRule `json:"classify"`
}

// TaskExtraction configures the pattern-based task extractor.
type TaskExtraction struct {
	Patterns        []string `json:"patterns"`
	UrgencyPatterns []string `json:"urgencyPatterns"`
	MaxTasks        int      `json:"maxTasks"`
	MinTitleLength  int      `json:"minTitleLength"`
}

// TenantConfig is a tenant's fully resolved pipeline configuration.
// Every field has a compiled-in default; overrides are stored per
// section and merged at load time.
type TenantConfig struct {
	Classifications Classifications `json:"classifications"`
	AIParams        AIParams        `json:"aiParams"`
	Thresholds      Thresholds      `json:"thresholds"`
	Keywords        Keywords        `json:"keywords"`
	Domains         Domains         `json:"domains"`
	Scheduling      Scheduling      `json:"scheduling"`
	ContentLimits   ContentLimits   `json:"contentLimits"`
	PostActions     PostActions     `json:"postActions"`
	SystemRules     SystemRules     `json:"systemRules"`
	TaskExtraction  TaskExtraction  `json:"taskExtraction"`
}
