package airouter

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/pkg/anthropic"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// anthropicProvider adapts pkg/anthropic to the Provider interface.
type anthropicProvider struct {
	cfg    model.ProviderConfig
	client anthropic.Client
}

// NewAnthropicProvider builds a Provider for an Anthropic backend config.
func NewAnthropicProvider(cfg model.ProviderConfig, client anthropic.Client) Provider {
	return &anthropicProvider{cfg: cfg, client: client}
}

func (p *anthropicProvider) Name() string { return p.cfg.Name }

func (p *anthropicProvider) Kind() model.ProviderKind { return model.ProviderAnthropic }

func (p *anthropicProvider) AvailableModels() []model.ModelConfig {
	return p.cfg.Models
}

func (p *anthropicProvider) DefaultModel() string {
	if len(p.cfg.Models) > 0 {
		return p.cfg.Models[0].Name
	}
	return defaultAnthropicModel
}

func (p *anthropicProvider) GenerateCompletion(ctx context.Context, req Request) (*Response, error) {
	msgReq := anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: req.Temperature,
	}
	if req.System != "" {
		msgReq.System = anthropic.BuildCachedSystemBlocks(req.System)
	}
	for _, m := range req.Messages {
		msgReq.Messages = append(msgReq.Messages, anthropic.Message{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := p.client.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, eris.Wrapf(err, "airouter: %s completion", p.cfg.Name)
	}

	usage := TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return &Response{
		Content:      resp.Text(),
		Model:        resp.Model,
		ProviderName: p.cfg.Name,
		Usage:        usage,
		Cost:         p.EstimateCost(resp.Model, usage),
		Latency:      time.Since(start),
	}, nil
}

func (p *anthropicProvider) EstimateCost(modelName string, usage TokenUsage) float64 {
	if cost, ok := configCost(p.cfg, modelName, usage); ok {
		return cost
	}
	// Fall back to SDK pricing for models without configured rates.
	u := anthropic.TokenUsage{
		InputTokens:  int64(usage.InputTokens),
		OutputTokens: int64(usage.OutputTokens),
	}
	return u.EstimateCost(modelName)
}
