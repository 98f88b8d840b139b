package crm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/pkg/salesforce"
)

// ContactWriter is the store subset the sync needs.
type ContactWriter interface {
	UpsertContact(ctx context.Context, c *model.Contact) error
}

// SyncResult summarizes a contact sync run.
type SyncResult struct {
	Fetched int
	Synced  int
	Skipped int
}

// SyncContacts pulls contacts modified since the given time from Salesforce
// and upserts them into the local snapshot. A zero since fetches the full
// directory. Contacts without an email are skipped.
func SyncContacts(ctx context.Context, client salesforce.Client, w ContactWriter, tenantID string, since time.Time) (*SyncResult, error) {
	sinceLiteral := ""
	if !since.IsZero() {
		sinceLiteral = since.UTC().Format("2006-01-02T15:04:05Z")
	}

	sfContacts, err := salesforce.QueryContactsModifiedSince(ctx, client, sinceLiteral)
	if err != nil {
		return nil, eris.Wrap(err, "crm: fetch contacts")
	}

	res := &SyncResult{Fetched: len(sfContacts)}
	now := time.Now().UTC()
	for _, sfc := range sfContacts {
		if sfc.Email == "" {
			res.Skipped++
			continue
		}
		contact, err := toModelContact(ctx, client, tenantID, sfc)
		if err != nil {
			return res, err
		}
		contact.UpdatedAt = now
		if err := w.UpsertContact(ctx, contact); err != nil {
			return res, eris.Wrap(err, "crm: upsert contact")
		}
		res.Synced++
	}

	zap.L().Info("contact sync complete",
		zap.String("tenant_id", tenantID),
		zap.Int("fetched", res.Fetched),
		zap.Int("synced", res.Synced),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
