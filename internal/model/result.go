package model

import "time"

// AnalysisSource distinguishes AI-derived analysis from the deterministic
// heuristic fallback so downstream consumers can verify degradation.
const (
	AnalysisTypeAI        = "ai"
	AnalysisTypeHeuristic = "heuristic"
)

// AIAnalysis holds the normalized output of the AI_ANALYSIS stage,
// whether produced by an AI backend or by the heuristic fallback.
type AIAnalysis struct {
	Sentiment        Sentiment      `json:"sentiment"`
	Urgency          int            `json:"urgency"` // 0-100
	Summary          string         `json:"summary,omitempty"`
	SuggestedActions []string       `json:"suggested_actions,omitempty"`
	ExtractedData    map[string]any `json:"extracted_data,omitempty"`
}

// AnalysisType reports how the analysis was produced ("ai" or "heuristic").
func (a *AIAnalysis) AnalysisType() string {
	if a == nil || a.ExtractedData == nil {
		return ""
	}
	t, _ := a.ExtractedData["analysisType"].(string)
	return t
}

// DeferredAction is a proposed side effect (task creation, notification)
// that the persistence collaborator executes after the result is stored.
// The pipeline itself never writes to the surrounding system's tables.
type DeferredAction struct {
	Type ActionType     `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// ExtractedTask is a task candidate pulled out of item content.
type ExtractedTask struct {
	Title        string   `json:"title"`
	Priority     Priority `json:"priority"`
	DueIndicator string   `json:"due_indicator,omitempty"`
}

// PipelineResult is the output record of one pipeline run. It is
// constructed once per item and never mutated after the run completes.
type PipelineResult struct {
	ItemID           string           `json:"item_id"`
	TenantID         string           `json:"tenant_id"`
	Stage            Stage            `json:"stage"`
	Action           Action           `json:"action"`
	IsSpam           bool             `json:"is_spam"`
	Category         string           `json:"category,omitempty"`
	Priority         Priority         `json:"priority"`
	SkipAI           bool             `json:"skip_ai"`
	AIAnalysis       *AIAnalysis      `json:"ai_analysis,omitempty"`
	ExtractedTasks   []ExtractedTask  `json:"extracted_tasks,omitempty"`
	Actions          []DeferredAction `json:"actions,omitempty"`
	RulesExecuted    []string         `json:"rules_executed"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	CreatedAt        time.Time        `json:"created_at,omitempty"`
}

// PipelineStats aggregates outcomes over a window for one tenant.
type PipelineStats struct {
	TotalProcessed   int64   `json:"total_processed"`
	Rejected         int64   `json:"rejected"`
	SkippedAI        int64   `json:"skipped_ai"`
	AIAnalyzed       int64   `json:"ai_analyzed"`
	AvgProcessingMs  float64 `json:"avg_processing_ms"`
}

// SuggestionStatus is the review state of a proposed side effect.
type SuggestionStatus string

const (
	SuggestionPending      SuggestionStatus = "PENDING"
	SuggestionAutoApproved SuggestionStatus = "AUTO_APPROVED"
	SuggestionAccepted     SuggestionStatus = "ACCEPTED"
	SuggestionDismissed    SuggestionStatus = "DISMISSED"
)

// Suggestion is a proposed but unexecuted side effect requiring either
// automatic or human-reviewed confirmation before being applied.
type Suggestion struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"`
	Context    string           `json:"context"` // e.g. CREATE_TASK, NOTIFY, BLACKLIST_DOMAIN
	Payload    map[string]any   `json:"payload"`
	Confidence int              `json:"confidence"` // 0-100
	Reasoning  string           `json:"reasoning,omitempty"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}
