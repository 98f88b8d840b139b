package airouter

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/pkg/openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openaiProvider adapts pkg/openai to the Provider interface. It serves any
// backend speaking the chat-completions protocol, including self-hosted
// gateways configured through BaseURL.
type openaiProvider struct {
	cfg    model.ProviderConfig
	client openai.Client
}

// NewOpenAIProvider builds a Provider for an OpenAI-compatible backend config.
func NewOpenAIProvider(cfg model.ProviderConfig, client openai.Client) Provider {
	return &openaiProvider{cfg: cfg, client: client}
}

func (p *openaiProvider) Name() string { return p.cfg.Name }

func (p *openaiProvider) Kind() model.ProviderKind { return model.ProviderOpenAI }

func (p *openaiProvider) AvailableModels() []model.ModelConfig {
	return p.cfg.Models
}

func (p *openaiProvider) DefaultModel() string {
	if len(p.cfg.Models) > 0 {
		return p.cfg.Models[0].Name
	}
	return defaultOpenAIModel
}

func (p *openaiProvider) GenerateCompletion(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		chatReq.MaxTokens = &mt
	}
	if req.JSONResponse {
		chatReq.ResponseFormat = &openai.ResponseFormat{Type: "json_object"}
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, openai.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, openai.Message{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := p.client.ChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, eris.Wrapf(err, "airouter: %s completion", p.cfg.Name)
	}
	if len(resp.Choices) == 0 {
		return nil, eris.Errorf("airouter: %s returned no choices", p.cfg.Name)
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = req.Model
	}
	usage := TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        respModel,
		ProviderName: p.cfg.Name,
		Usage:        usage,
		Cost:         p.EstimateCost(respModel, usage),
		Latency:      time.Since(start),
	}, nil
}

func (p *openaiProvider) EstimateCost(modelName string, usage TokenUsage) float64 {
	cost, _ := configCost(p.cfg, modelName, usage)
	return cost
}
