package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/pkg/notion"
)

// notionBoard publishes pending suggestions as cards on a Notion review
// database.
type notionBoard struct {
	client notion.Client
	dbID   string
}

// NewNotionReviewBoard creates a ReviewBoard writing to the given
// Notion database.
func NewNotionReviewBoard(client notion.Client, dbID string) ReviewBoard {
	return &notionBoard{client: client, dbID: dbID}
}

func (b *notionBoard) Publish(ctx context.Context, s *model.Suggestion) error {
	card := notion.ReviewCard{
		RecordID:   s.ID,
		TenantID:   s.TenantID,
		Context:    s.Context,
		Summary:    suggestionSummary(s),
		Confidence: s.Confidence,
		Reasoning:  s.Reasoning,
	}
	if _, err := notion.PublishReviewCard(ctx, b.client, b.dbID, card); err != nil {
		return eris.Wrap(err, "pipeline: publish review card")
	}
	return nil
}

func suggestionSummary(s *model.Suggestion) string {
	if domain, ok := s.Payload["domain"].(string); ok && domain != "" {
		return fmt.Sprintf("Blacklist %s?", domain)
	}
	return s.Context
}
