package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// ReviewCard is a suggestion published to the review board for a human
// decision. RecordID ties the page back to the originating record.
type ReviewCard struct {
	RecordID   string
	TenantID   string
	Context    string
	Summary    string
	Confidence int
	Reasoning  string
}

// PublishReviewCard creates a page on the review board database with
// Status = "Pending". Returns the created page ID.
func PublishReviewCard(ctx context.Context, c Client, dbID string, card ReviewCard) (string, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Title: []notionapi.RichText{
					{Text: &notionapi.Text{Content: card.Summary}},
				},
			},
			"Record ID": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{
					{Text: &notionapi.Text{Content: card.RecordID}},
				},
			},
			"Tenant": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{
					{Text: &notionapi.Text{Content: card.TenantID}},
				},
			},
			"Context": notionapi.SelectProperty{
				Select: notionapi.Option{Name: card.Context},
			},
			"Confidence": notionapi.NumberProperty{
				Number: float64(card.Confidence),
			},
			"Reasoning": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{
					{Text: &notionapi.Text{Content: card.Reasoning}},
				},
			},
			"Status": notionapi.StatusProperty{
				Status: notionapi.Option{Name: "Pending"},
			},
		},
	}

	page, err := c.CreatePage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "notion: publish review card")
	}
	return string(page.ID), nil
}

// MarkReviewed flips a review page's Status to the given value.
func MarkReviewed(ctx context.Context, c Client, pageID, status string) error {
	req := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			"Status": notionapi.StatusProperty{
				Status: notionapi.Option{Name: status},
			},
		},
	}
	if _, err := c.UpdatePage(ctx, pageID, req); err != nil {
		return eris.Wrap(err, fmt.Sprintf("notion: mark page %s as %s", pageID, status))
	}
	return nil
}

// PageRecordID extracts the Record ID property from a review page.
// Returns "" when the property is missing or empty.
func PageRecordID(page notionapi.Page) string {
	prop, ok := page.Properties["Record ID"].(*notionapi.RichTextProperty)
	if !ok || len(prop.RichText) == 0 {
		return ""
	}
	return prop.RichText[0].PlainText
}
