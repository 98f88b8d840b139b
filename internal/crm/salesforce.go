package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/pkg/salesforce"
)

// vipDealThreshold is the open-deal count at which a sender's account is
// treated as VIP.
const vipDealThreshold = 1

// salesforceDirectory resolves senders live against Salesforce instead of
// the local snapshot. Used when a tenant wires CRM credentials but has not
// run a contact sync.
type salesforceDirectory struct {
	client salesforce.Client
}

// NewSalesforceDirectory creates a Directory that queries Salesforce
// per lookup.
func NewSalesforceDirectory(client salesforce.Client) Directory {
	return &salesforceDirectory{client: client}
}

func (d *salesforceDirectory) Lookup(ctx context.Context, tenantID, email string) (*model.Contact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	sfc, err := salesforce.FindContactByEmail(ctx, d.client, email)
	if err != nil {
		return nil, eris.Wrap(err, "crm: salesforce lookup")
	}
	if sfc == nil {
		return nil, nil
	}
	return toModelContact(ctx, d.client, tenantID, *sfc)
}

// toModelContact converts a Salesforce contact to the directory model,
// counting open deals on its account to derive the VIP flag.
func toModelContact(ctx context.Context, c salesforce.Client, tenantID string, sfc salesforce.Contact) (*model.Contact, error) {
	contact := &model.Contact{
		ID:       sfc.ID,
		TenantID: tenantID,
		Email:    strings.ToLower(sfc.Email),
		Name:     sfc.Name,
	}
	if sfc.Account == nil {
		return contact, nil
	}

	contact.Company = sfc.Account.Name
	deals, err := salesforce.CountOpenOpportunities(ctx, c, sfc.Account.ID)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("crm: open deals for account %s", sfc.Account.ID))
	}
	contact.OpenDeals = deals
	contact.VIP = deals >= vipDealThreshold
	return contact, nil
}
