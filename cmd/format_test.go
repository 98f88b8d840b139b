package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/triage/internal/model"
)

func TestFormatProvidersList(t *testing.T) {
	var buf bytes.Buffer
	formatProvidersList(&buf, []model.ProviderConfig{
		{
			ID:       "11112222-3333-4444-5555-666677778888",
			Name:     "primary-claude",
			Kind:     model.ProviderAnthropic,
			Priority: 100,
			Status:   model.ProviderActive,
			Models: []model.ModelConfig{
				{Name: "claude-sonnet-4-5"},
				{Name: "claude-haiku-4-5"},
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "11112222")
	assert.NotContains(t, out, "11112222-3333")
	assert.Contains(t, out, "primary-claude")
	assert.Contains(t, out, "claude-sonnet-4-5, claude-haiku-4-5")
	assert.Contains(t, out, "ACTIVE")
}

func TestFormatExecutionsList(t *testing.T) {
	var buf bytes.Buffer
	formatExecutionsList(&buf, []model.Execution{
		{
			ID:           "aaaabbbb-0000-0000-0000-000000000000",
			ProviderName: "primary-claude",
			ModelName:    "claude-sonnet-4-5",
			InputTokens:  1200,
			OutputTokens: 300,
			Cost:         0.0081,
			LatencyMs:    640,
			Status:       model.ExecutionSuccess,
		},
		{
			ID:           "ccccdddd-0000-0000-0000-000000000000",
			ProviderName: "backup-gpt",
			ModelName:    "gpt-4o-mini",
			Cost:         0.0019,
			Status:       model.ExecutionFailed,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "1200/300")
	assert.Contains(t, out, "$0.0081")
	assert.Contains(t, out, "640ms")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "2 executions, $0.0100 total")
}

func TestFormatSuggestionsList(t *testing.T) {
	var buf bytes.Buffer
	formatSuggestionsList(&buf, []model.Suggestion{
		{
			ID:         "eeeeffff-0000-0000-0000-000000000000",
			Context:    "BLACKLIST_DOMAIN",
			Payload:    map[string]any{"domain": "scam.example"},
			Confidence: 70,
			Status:     model.SuggestionPending,
			CreatedAt:  time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
	})

	out := buf.String()
	assert.Contains(t, out, "BLACKLIST_DOMAIN")
	assert.Contains(t, out, "scam.example")
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "2026-08-30 10:00")
}

func TestFormatResultsList(t *testing.T) {
	var buf bytes.Buffer
	formatResultsList(&buf, []model.PipelineResult{
		{
			ItemID:           "item-1",
			Stage:            model.StageCompleted,
			Category:         "support",
			Priority:         model.PriorityHigh,
			SkipAI:           false,
			ProcessingTimeMs: 120,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "support")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "120ms")
}

func TestFormatStats(t *testing.T) {
	var buf bytes.Buffer
	formatStats(&buf, "acme", 24*time.Hour, &model.PipelineStats{
		TotalProcessed:  40,
		Rejected:        5,
		SkippedAI:       12,
		AIAnalyzed:      23,
		AvgProcessingMs: 84.5,
	})

	out := buf.String()
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "40")
	assert.Contains(t, out, "84.5ms")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "11112222", truncateID("11112222-3333-4444-5555-666677778888"))
	assert.Equal(t, "short", truncateID("short"))
}
