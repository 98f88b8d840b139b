package salesforce

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// CreateTask creates a Task record linked to the given Contact and returns
// the new Salesforce ID. Used when an operator accepts a task suggestion.
func CreateTask(ctx context.Context, c Client, contactID, subject, priority string) (string, error) {
	if subject == "" {
		return "", eris.New("sf: task Subject is required")
	}
	record := map[string]any{
		"Subject": subject,
		"Status":  "Not Started",
	}
	if priority != "" {
		record["Priority"] = priority
	}
	if contactID != "" {
		record["WhoId"] = contactID
	}
	id, err := c.InsertOne(ctx, "Task", record)
	if err != nil {
		return "", eris.Wrap(err, "sf: create task")
	}
	return id, nil
}

// UpdateContact updates a Contact record with the given fields.
func UpdateContact(ctx context.Context, c Client, contactID string, fields map[string]any) error {
	if contactID == "" {
		return eris.New("sf: contact id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Contact", contactID, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update contact %s", contactID))
	}
	return nil
}
