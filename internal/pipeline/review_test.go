package pipeline

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/triage/internal/model"
)

type fakeNotionClient struct {
	created   []*notionapi.PageCreateRequest
	createErr error
}

func (f *fakeNotionClient) QueryDatabase(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (f *fakeNotionClient) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &notionapi.Page{ID: "page-1"}, nil
}

func (f *fakeNotionClient) UpdatePage(context.Context, string, *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return &notionapi.Page{}, nil
}

func TestNotionReviewBoard_Publish(t *testing.T) {
	client := &fakeNotionClient{}
	board := NewNotionReviewBoard(client, "db-1")

	err := board.Publish(context.Background(), &model.Suggestion{
		ID:         "s1",
		TenantID:   "t1",
		Context:    "BLACKLIST_DOMAIN",
		Payload:    map[string]any{"domain": "vendor.io"},
		Confidence: 70,
		Reasoning:  "recurring newsletter sender",
	})
	require.NoError(t, err)
	require.Len(t, client.created, 1)
	assert.Equal(t, notionapi.DatabaseID("db-1"), client.created[0].Parent.DatabaseID)
}

func TestSuggestionSummary(t *testing.T) {
	s := &model.Suggestion{
		Context: "BLACKLIST_DOMAIN",
		Payload: map[string]any{"domain": "vendor.io"},
	}
	assert.Equal(t, "Blacklist vendor.io?", suggestionSummary(s))

	s = &model.Suggestion{Context: "CREATE_TASK", Payload: map[string]any{}}
	assert.Equal(t, "CREATE_TASK", suggestionSummary(s))
}
