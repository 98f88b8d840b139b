package model

import "time"

// ProviderKind selects the wire protocol used to talk to an AI backend.
type ProviderKind string

const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOpenAI    ProviderKind = "openai" // any OpenAI-compatible endpoint
)

// ProviderStatus reflects the last observed health of a backend.
type ProviderStatus string

const (
	ProviderActive      ProviderStatus = "ACTIVE"
	ProviderUnavailable ProviderStatus = "UNAVAILABLE"
	ProviderDisabled    ProviderStatus = "DISABLED"
)

// ModelConfig describes one model a provider serves, with per-1K-token
// pricing used for cost accounting on every execution.
type ModelConfig struct {
	Name        string  `json:"name" yaml:"name"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	InputPer1K  float64 `json:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k" yaml:"output_per_1k"`
}

// ProviderConfig is a tenant-scoped AI backend definition. Lower
// Priority values are tried first when building fallback chains.
type ProviderConfig struct {
	ID        string         `json:"id" yaml:"id"`
	TenantID  string         `json:"tenant_id" yaml:"tenant_id"`
	Name      string         `json:"name" yaml:"name"`
	Kind      ProviderKind   `json:"kind" yaml:"kind"`
	BaseURL   string         `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey    string         `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Priority  int            `json:"priority" yaml:"priority"`
	Status    ProviderStatus `json:"status" yaml:"status"`
	Models    []ModelConfig  `json:"models" yaml:"models"`
	CreatedAt time.Time      `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time      `json:"updated_at,omitempty" yaml:"-"`
}

// Model returns the configuration for the named model, if present.
func (p *ProviderConfig) Model(name string) (ModelConfig, bool) {
	for _, m := range p.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// ExecutionStatus tags an execution log entry.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

// Execution is one attempt against one backend model. Every attempt is
// recorded, including failed ones inside a fallback chain.
type Execution struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	ProviderID   string          `json:"provider_id"`
	ProviderName string          `json:"provider_name"`
	ModelName    string          `json:"model_name"`
	Prompt       string          `json:"prompt"`
	Response     string          `json:"response,omitempty"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	Cost         float64         `json:"cost"`
	LatencyMs    int64           `json:"latency_ms"`
	Status       ExecutionStatus `json:"status"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
