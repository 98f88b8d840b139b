package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/airouter"
	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/tenantconf"
)

// analysisSystemPrompt instructs the backend to answer with the JSON
// shape parseAnalysis expects.
const analysisSystemPrompt = `You are a triage assistant for inbound business communication.
Analyze the message and respond with a single JSON object with exactly these keys:
- "sentiment": one of "POSITIVE", "NEUTRAL", "NEGATIVE"
- "urgency": integer 0-100
- "summary": one or two sentences
- "suggested_actions": array of short action strings
- "extracted_data": object with any structured facts found (amounts, dates, order numbers)
Respond with JSON only, no prose.`

// defaultAnalysisTemplate renders the user message. Placeholders are
// substituted from the item; content is truncated to the tenant's
// AI content limit first.
const defaultAnalysisTemplate = `From: {{senderEmail}}
Subject: {{subject}}

{{content}}`

// renderPrompt substitutes the template placeholders from the item,
// truncating the body to limit runes (0 means no limit).
func renderPrompt(tmpl string, item model.ContentItem, limit int) string {
	content := item.Body
	if limit > 0 {
		if runes := []rune(content); len(runes) > limit {
			content = string(runes[:limit])
		}
	}
	r := strings.NewReplacer(
		"{{senderEmail}}", item.SenderEmail(),
		"{{subject}}", item.Subject,
		"{{content}}", content,
	)
	return r.Replace(tmpl)
}

// buildAnalysisRequest assembles the normalized completion request from
// tenant AI parameters.
func buildAnalysisRequest(item model.ContentItem, cfg *tenantconf.TenantConfig) airouter.Request {
	temp := cfg.AIParams.Temperature
	return airouter.Request{
		Model:        cfg.AIParams.Model,
		System:       analysisSystemPrompt,
		Temperature:  &temp,
		MaxTokens:    cfg.AIParams.MaxTokens,
		JSONResponse: true,
		Messages: []airouter.Message{
			{Role: "user", Content: renderPrompt(defaultAnalysisTemplate, item, cfg.ContentLimits.AIContentLimit)},
		},
	}
}

// analyze runs the AI stage: route the request through the tenant's
// backends and normalize the response. Every failure path degrades to
// the heuristic analyzer so the item is never left unanalyzed.
func (p *Pipeline) analyze(ctx context.Context, item model.ContentItem, tenantID string, cfg *tenantconf.TenantConfig) *model.AIAnalysis {
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("item_id", item.ID))

	if p.routers == nil {
		return heuristicAnalysis(item, cfg)
	}
	router, err := p.routers.ForTenant(ctx, tenantID)
	if err != nil {
		log.Warn("pipeline: router unavailable, using heuristic", zap.Error(err))
		return heuristicAnalysis(item, cfg)
	}
	if router == nil || len(router.Providers()) == 0 {
		log.Debug("pipeline: no AI providers configured, using heuristic")
		return heuristicAnalysis(item, cfg)
	}

	resp, err := router.ProcessRequest(ctx, buildAnalysisRequest(item, cfg))
	if err != nil {
		log.Warn("pipeline: AI backends exhausted, using heuristic", zap.Error(err))
		return heuristicAnalysis(item, cfg)
	}

	analysis, err := parseAnalysis(resp.Content)
	if err != nil {
		log.Warn("pipeline: unparseable AI response, using heuristic", zap.Error(err))
		return heuristicAnalysis(item, cfg)
	}
	return analysis
}

// analysisPayload is the wire shape expected back from the backend.
type analysisPayload struct {
	Sentiment        string         `json:"sentiment"`
	Urgency          int            `json:"urgency"`
	Summary          string         `json:"summary"`
	SuggestedActions []string       `json:"suggested_actions"`
	ExtractedData    map[string]any `json:"extracted_data"`
}

// parseAnalysis extracts and normalizes the JSON analysis from a
// completion, tolerating fenced code blocks and surrounding prose.
func parseAnalysis(content string) (*model.AIAnalysis, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, eris.Wrap(err, "pipeline: decode analysis")
	}

	urgency := payload.Urgency
	if urgency < 0 {
		urgency = 0
	}
	if urgency > maxUrgency {
		urgency = maxUrgency
	}

	extracted := payload.ExtractedData
	if extracted == nil {
		extracted = map[string]any{}
	}
	extracted["analysisType"] = model.AnalysisTypeAI

	return &model.AIAnalysis{
		Sentiment:        parseSentiment(payload.Sentiment),
		Urgency:          urgency,
		Summary:          payload.Summary,
		SuggestedActions: payload.SuggestedActions,
		ExtractedData:    extracted,
	}, nil
}

func parseSentiment(s string) model.Sentiment {
	switch model.Sentiment(strings.ToUpper(strings.TrimSpace(s))) {
	case model.SentimentPositive:
		return model.SentimentPositive
	case model.SentimentNegative:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

// extractJSON locates the JSON object in a completion. Handles a bare
// object, a ```json fenced block, and an object embedded in prose.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			content = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", eris.New("pipeline: no JSON object in response")
	}
	return content[start : end+1], nil
}
