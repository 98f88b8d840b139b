// Package crm resolves sender context from the tenant's contact directory.
package crm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
)

// Directory looks up a sender in the tenant's contact records.
// Lookup returns (nil, nil) when the sender is unknown.
type Directory interface {
	Lookup(ctx context.Context, tenantID, email string) (*model.Contact, error)
}

// ContactFinder is the store subset a store-backed Directory needs.
type ContactFinder interface {
	FindContactByEmail(ctx context.Context, tenantID, email string) (*model.Contact, error)
}

// storeDirectory reads contacts from the local store, which holds the
// synced CRM snapshot.
type storeDirectory struct {
	finder ContactFinder
}

// NewStoreDirectory creates a Directory over the local contact snapshot.
func NewStoreDirectory(finder ContactFinder) Directory {
	return &storeDirectory{finder: finder}
}

func (d *storeDirectory) Lookup(ctx context.Context, tenantID, email string) (*model.Contact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return d.finder.FindContactByEmail(ctx, tenantID, email)
}

// nullDirectory is used when no contact source is configured. Every
// sender resolves as unknown.
type nullDirectory struct{}

// NewNullDirectory creates a Directory that knows no contacts.
func NewNullDirectory() Directory {
	return nullDirectory{}
}

func (nullDirectory) Lookup(context.Context, string, string) (*model.Contact, error) {
	return nil, nil
}

// SafeLookup wraps a Directory lookup so a directory fault degrades the
// sender to unknown instead of failing the pipeline run.
func SafeLookup(ctx context.Context, d Directory, tenantID, email string) *model.Contact {
	if d == nil {
		return nil
	}
	c, err := d.Lookup(ctx, tenantID, email)
	if err != nil {
		zap.L().Warn("contact lookup failed, treating sender as unknown",
			zap.String("tenant_id", tenantID),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil
	}
	return c
}
