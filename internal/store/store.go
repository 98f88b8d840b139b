package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/relaycrm/triage/internal/model"
)

// ExecutionFilter specifies criteria for listing AI execution logs.
type ExecutionFilter struct {
	TenantID     string                `json:"tenant_id,omitempty"`
	ProviderName string                `json:"provider_name,omitempty"`
	Status       model.ExecutionStatus `json:"status,omitempty"`
	Limit        int                   `json:"limit,omitempty"`
	Offset       int                   `json:"offset,omitempty"`
}

// ResultFilter specifies criteria for listing pipeline results.
type ResultFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// SuggestionFilter specifies criteria for listing suggestions.
type SuggestionFilter struct {
	TenantID string                 `json:"tenant_id,omitempty"`
	Status   model.SuggestionStatus `json:"status,omitempty"`
	Limit    int                    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the triage pipeline.
type Store interface {
	// Rules
	ListRules(ctx context.Context, tenantID string, stage model.Stage) ([]model.PipelineRule, error)
	GetRule(ctx context.Context, id string) (*model.PipelineRule, error)
	CreateRule(ctx context.Context, rule *model.PipelineRule) error
	UpdateRule(ctx context.Context, rule *model.PipelineRule) error
	DeleteRule(ctx context.Context, id string) error
	RecordRuleMatch(ctx context.Context, id string) error
	ImportRules(ctx context.Context, tenantID string, rules []model.PipelineRule) (int, error)

	// Tenant configuration sections
	GetConfigSections(ctx context.Context, tenantID string) (map[string]json.RawMessage, error)
	PutConfigSection(ctx context.Context, tenantID, section string, data json.RawMessage) error
	DeleteConfigSection(ctx context.Context, tenantID, section string) error

	// AI providers
	ListProviders(ctx context.Context, tenantID string) ([]model.ProviderConfig, error)
	UpsertProvider(ctx context.Context, p *model.ProviderConfig) error
	DeleteProvider(ctx context.Context, id string) error

	// AI execution logs
	InsertExecution(ctx context.Context, e *model.Execution) error
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]model.Execution, error)

	// Pipeline results
	InsertResult(ctx context.Context, r *model.PipelineResult) error
	ListResults(ctx context.Context, filter ResultFilter) ([]model.PipelineResult, error)
	Stats(ctx context.Context, tenantID string, since time.Time) (*model.PipelineStats, error)

	// Suggestions
	InsertSuggestion(ctx context.Context, s *model.Suggestion) error
	ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]model.Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error

	// CRM contact directory
	FindContactByEmail(ctx context.Context, tenantID, email string) (*model.Contact, error)
	UpsertContact(ctx context.Context, c *model.Contact) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
