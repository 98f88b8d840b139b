// Package airouter routes analysis requests across configured AI backends
// with priority ordering, fallback chains and per-call cost accounting.
package airouter

import (
	"context"
	"time"

	"github.com/relaycrm/triage/internal/model"
)

// Message is a single conversational turn sent to a backend.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request describes one completion call, independent of the backend protocol.
type Request struct {
	Model        string
	System       string
	Messages     []Message
	Temperature  *float64
	MaxTokens    int
	JSONResponse bool
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the normalized result of a completion call.
type Response struct {
	Content      string
	Model        string
	ProviderName string
	Usage        TokenUsage
	Cost         float64
	Latency      time.Duration
}

// Provider is a configured AI backend.
type Provider interface {
	// Name returns the tenant-assigned backend name.
	Name() string

	// Kind identifies the wire protocol.
	Kind() model.ProviderKind

	// AvailableModels lists models the backend is configured to serve.
	AvailableModels() []model.ModelConfig

	// DefaultModel returns the model used when a request names none.
	DefaultModel() string

	// GenerateCompletion performs one completion call.
	GenerateCompletion(ctx context.Context, req Request) (*Response, error)

	// EstimateCost computes the USD cost of a call from configured
	// per-model pricing. Unknown models cost 0.
	EstimateCost(modelName string, usage TokenUsage) float64
}

// configCost looks up configured pricing for a model and prices the usage.
// Pricing is per 1K tokens.
func configCost(cfg model.ProviderConfig, modelName string, usage TokenUsage) (float64, bool) {
	mc, ok := cfg.Model(modelName)
	if !ok {
		return 0, false
	}
	in := (float64(usage.InputTokens) / 1000) * mc.InputPer1K
	out := (float64(usage.OutputTokens) / 1000) * mc.OutputPer1K
	return in + out, true
}
