package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	want := &MessageResponse{
		ID:         "msg_001",
		Model:      "claude-3-5-haiku-latest",
		Content:    []ContentBlock{{Type: "text", Text: `{"category":"inquiry"}`}},
		StopReason: "end_turn",
		Usage:      TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(want, nil)

	resp, err := mc.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 800,
		Messages:  []Message{{Role: "user", Content: "classify this"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_001", resp.ID)
	assert.Equal(t, int64(100), resp.Usage.InputTokens)
	mc.AssertExpectations(t)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "part one "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "part two"},
		},
	}
	assert.Equal(t, "part one part two", resp.Text())

	empty := &MessageResponse{}
	assert.Equal(t, "", empty.Text())
}

func TestEstimateCost_Haiku(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := usage.EstimateCost("claude-3-5-haiku-latest")
	assert.InDelta(t, 4.80, cost, 0.001)
}

func TestEstimateCost_Sonnet(t *testing.T) {
	usage := TokenUsage{InputTokens: 500_000, OutputTokens: 100_000}
	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 3.00, cost, 0.001)
}

func TestEstimateCost_WithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              100_000,
		OutputTokens:             10_000,
		CacheCreationInputTokens: 50_000,
		CacheReadInputTokens:     200_000,
	}
	cost := usage.EstimateCost("claude-3-5-haiku-latest")
	// in: 0.08, out: 0.04, cache write: 0.05, cache read: 0.016
	assert.InDelta(t, 0.186, cost, 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Equal(t, 0.0, usage.EstimateCost("some-unknown-model"))
}

func TestEstimateCost_ZeroTokens(t *testing.T) {
	var usage TokenUsage
	assert.Equal(t, 0.0, usage.EstimateCost("claude-3-5-haiku-latest"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	usage := TokenUsage{InputTokens: 10, OutputTokens: 5}
	assert.NotPanics(t, func() {
		usage.LogCost("claude-3-5-haiku-latest", "analysis")
	})
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("You are a content triage assistant")
	require.Len(t, blocks, 1)
	assert.Equal(t, "You are a content triage assistant", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "5m", blocks[0].CacheControl.TTL)
}
