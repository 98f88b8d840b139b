package pipeline

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/relaycrm/triage/internal/airouter"
	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/tenantconf"
)

// fakeRuleSource serves scripted tenant rules per stage and records
// match counter calls.
type fakeRuleSource struct {
	mu      sync.Mutex
	rules   map[model.Stage][]model.PipelineRule
	listErr error
	matched []string
}

func (f *fakeRuleSource) ListRules(_ context.Context, _ string, stage model.Stage) ([]model.PipelineRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rules[stage], nil
}

func (f *fakeRuleSource) RecordRuleMatch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matched = append(f.matched, id)
	return nil
}

// fakeConfSource backs a tenantconf.Loader. Empty sections resolve to
// pure defaults.
type fakeConfSource struct {
	sections map[string]json.RawMessage
	err      error
}

func (f *fakeConfSource) GetConfigSections(context.Context, string) (map[string]json.RawMessage, error) {
	return f.sections, f.err
}

func (f *fakeConfSource) PutConfigSection(context.Context, string, string, json.RawMessage) error {
	return nil
}

func (f *fakeConfSource) DeleteConfigSection(context.Context, string, string) error {
	return nil
}

// stubProvider is the minimal Provider needed to make a router look
// configured.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Kind() model.ProviderKind { return model.ProviderOpenAI }

func (stubProvider) AvailableModels() []model.ModelConfig { return nil }

func (stubProvider) DefaultModel() string { return "stub-model" }

func (stubProvider) GenerateCompletion(context.Context, airouter.Request) (*airouter.Response, error) {
	return nil, nil
}

func (stubProvider) EstimateCost(string, airouter.TokenUsage) float64 { return 0 }

// fakeRouter scripts the completion surface.
type fakeRouter struct {
	resp      *airouter.Response
	err       error
	calls     int
	lastReq   airouter.Request
	providers []airouter.Provider
}

func newFakeRouter(content string) *fakeRouter {
	return &fakeRouter{
		resp:      &airouter.Response{Content: content, Model: "stub-model", ProviderName: "stub"},
		providers: []airouter.Provider{stubProvider{}},
	}
}

func (f *fakeRouter) ProcessRequest(_ context.Context, req airouter.Request) (*airouter.Response, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeRouter) Providers() []airouter.Provider { return f.providers }

type fakeRouterSource struct {
	router AIRouter
	err    error
}

func (f *fakeRouterSource) ForTenant(context.Context, string) (AIRouter, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.router, nil
}

// fakeDirectory resolves contacts from a fixed map keyed by email.
type fakeDirectory struct {
	contacts map[string]*model.Contact
}

func (f *fakeDirectory) Lookup(_ context.Context, _ string, email string) (*model.Contact, error) {
	return f.contacts[email], nil
}

type fakeSuggestionSink struct {
	mu          sync.Mutex
	suggestions []model.Suggestion
	err         error
}

func (f *fakeSuggestionSink) InsertSuggestion(_ context.Context, s *model.Suggestion) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestions = append(f.suggestions, *s)
	return nil
}

type fakeReviewBoard struct {
	published []model.Suggestion
	err       error
}

func (f *fakeReviewBoard) Publish(_ context.Context, s *model.Suggestion) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, *s)
	return nil
}

type fakeResultWriter struct {
	mu      sync.Mutex
	results []model.PipelineResult
	err     error
}

func (f *fakeResultWriter) InsertResult(_ context.Context, r *model.PipelineResult) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, *r)
	return nil
}

func newTestLoader() *tenantconf.Loader {
	return tenantconf.NewLoader(&fakeConfSource{}, 0)
}

func sampleItem() model.ContentItem {
	return model.ContentItem{
		ID:      "item-1",
		From:    "Jane Doe <jane@acme.com>",
		To:      "inbox@relay.example",
		Subject: "Question about my order",
		Body:    "Could you check the status of order 4711? Thanks!",
	}
}

const validAnalysisJSON = `{
	"sentiment": "NEGATIVE",
	"urgency": 85,
	"summary": "Customer is unhappy about a delayed order.",
	"suggested_actions": ["apologize", "check shipment"],
	"extracted_data": {"order_number": "4711"}
}`
