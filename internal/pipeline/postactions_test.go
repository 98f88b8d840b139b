package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/rules"
	"github.com/relaycrm/triage/internal/tenantconf"
)

func newPostActionPipeline(sink *fakeSuggestionSink, board *fakeReviewBoard) *Pipeline {
	opts := []PipelineOption{WithSuggestionSink(sink)}
	if board != nil {
		opts = append(opts, WithReviewBoard(board))
	}
	return New(&fakeRuleSource{}, newTestLoader(), nil, opts...)
}

func spamResult(tenantID string) *model.PipelineResult {
	return &model.PipelineResult{ItemID: "i1", TenantID: tenantID, Category: "spam"}
}

func TestRunPostActions_AutoBlacklist(t *testing.T) {
	sink := &fakeSuggestionSink{}
	p := newPostActionPipeline(sink, nil)
	cfg := tenantconf.Defaults()
	ectx := rules.NewEvalContext(model.ContentItem{From: "x@scam.example"})

	p.runPostActions(context.Background(), cfg, ectx, spamResult("t1"))

	require.Len(t, sink.suggestions, 1)
	s := sink.suggestions[0]
	assert.Equal(t, "BLACKLIST_DOMAIN", s.Context)
	assert.Equal(t, model.SuggestionAutoApproved, s.Status)
	assert.Equal(t, "scam.example", s.Payload["domain"])
	assert.Equal(t, autoBlacklistConfidence, s.Confidence)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestRunPostActions_SuggestBlacklistNeedsReview(t *testing.T) {
	sink := &fakeSuggestionSink{}
	board := &fakeReviewBoard{}
	p := newPostActionPipeline(sink, board)
	cfg := tenantconf.Defaults()
	ectx := rules.NewEvalContext(model.ContentItem{From: "news@vendor.io"})
	result := &model.PipelineResult{ItemID: "i1", TenantID: "t1", Category: "newsletter"}

	p.runPostActions(context.Background(), cfg, ectx, result)

	require.Len(t, sink.suggestions, 1)
	assert.Equal(t, model.SuggestionPending, sink.suggestions[0].Status)
	assert.Equal(t, suggestBlacklistConfidence, sink.suggestions[0].Confidence)

	require.Len(t, board.published, 1)
	assert.Equal(t, sink.suggestions[0].ID, board.published[0].ID)
}

func TestRunPostActions_FreeEmailDomainExempt(t *testing.T) {
	sink := &fakeSuggestionSink{}
	p := newPostActionPipeline(sink, nil)
	cfg := tenantconf.Defaults()
	ectx := rules.NewEvalContext(model.ContentItem{From: "someone@gmail.com"})

	p.runPostActions(context.Background(), cfg, ectx, spamResult("t1"))

	assert.Empty(t, sink.suggestions)
}

func TestRunPostActions_AutoApproveThreshold(t *testing.T) {
	sink := &fakeSuggestionSink{}
	board := &fakeReviewBoard{}
	p := newPostActionPipeline(sink, board)
	cfg := tenantconf.Defaults()
	// Lowering the auto-approve bar below the suggest confidence turns
	// the pending suggestion into an auto-approved one.
	cfg.Thresholds.AutoApproveConfidence = 60
	ectx := rules.NewEvalContext(model.ContentItem{From: "news@vendor.io"})
	result := &model.PipelineResult{ItemID: "i1", TenantID: "t1", Category: "newsletter"}

	p.runPostActions(context.Background(), cfg, ectx, result)

	require.Len(t, sink.suggestions, 1)
	assert.Equal(t, model.SuggestionAutoApproved, sink.suggestions[0].Status)
	assert.Empty(t, board.published)
}

func TestRunPostActions_TaskExtraction(t *testing.T) {
	p := newPostActionPipeline(&fakeSuggestionSink{}, nil)
	cfg := tenantconf.Defaults()
	ectx := rules.NewEvalContext(model.ContentItem{
		From: "jane@acme.com",
		Body: "Please send the revised quote.",
	})
	result := &model.PipelineResult{ItemID: "i1", TenantID: "t1", Category: "inquiry"}

	p.runPostActions(context.Background(), cfg, ectx, result)

	require.Len(t, result.ExtractedTasks, 1)
	assert.Equal(t, "send the revised quote", result.ExtractedTasks[0].Title)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, model.ActionTypeCreateTask, result.Actions[0].Type)
	assert.Equal(t, "send the revised quote", result.Actions[0].Data["title"])
}

func TestRunPostActions_UnknownCategoryNoop(t *testing.T) {
	sink := &fakeSuggestionSink{}
	p := newPostActionPipeline(sink, nil)
	ectx := rules.NewEvalContext(model.ContentItem{From: "x@y.com", Body: "Please do the thing."})
	result := &model.PipelineResult{ItemID: "i1", TenantID: "t1", Category: ""}

	p.runPostActions(context.Background(), tenantconf.Defaults(), ectx, result)

	assert.Empty(t, result.ExtractedTasks)
	assert.Empty(t, sink.suggestions)
}

func TestRunPostActions_NoSinkConfigured(t *testing.T) {
	p := New(&fakeRuleSource{}, newTestLoader(), nil)
	ectx := rules.NewEvalContext(model.ContentItem{From: "x@scam.example"})

	// Must not panic without a suggestion sink.
	p.runPostActions(context.Background(), tenantconf.Defaults(), ectx, spamResult("t1"))
}
