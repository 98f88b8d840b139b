package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Contact represents a Salesforce Contact record with the account relation
// fields needed for sender context.
type Contact struct {
	ID      string          `json:"Id" salesforce:"Id"`
	Email   string          `json:"Email" salesforce:"Email"`
	Name    string          `json:"Name" salesforce:"Name"`
	Account *ContactAccount `json:"Account" salesforce:"Account"`
}

// ContactAccount holds the subset of Account fields selected through the
// Contact relationship.
type ContactAccount struct {
	ID   string `json:"Id" salesforce:"Id"`
	Name string `json:"Name" salesforce:"Name"`
	Type string `json:"Type" salesforce:"Type"`
}

// contactFields are the SOQL fields selected for Contact queries.
var contactFields = []string{
	"Id", "Email", "Name", "Account.Id", "Account.Name", "Account.Type",
}

// FindContactByEmail queries Salesforce for a Contact matching the given email.
// Returns nil if no contact is found.
func FindContactByEmail(ctx context.Context, c Client, email string) (*Contact, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Contact WHERE Email = '%s' LIMIT 1",
		strings.Join(contactFields, ", "),
		escapeSoql(email),
	)

	var contacts []Contact
	if err := c.Query(ctx, soql, &contacts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find contact by email %s", email))
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return &contacts[0], nil
}

// QueryContactsModifiedSince fetches contacts changed on or after the given
// SOQL datetime literal (e.g. "2026-08-01T00:00:00Z"). Pass "" to fetch all.
func QueryContactsModifiedSince(ctx context.Context, c Client, sinceLiteral string) ([]Contact, error) {
	soql := fmt.Sprintf("SELECT %s FROM Contact WHERE Email != null", strings.Join(contactFields, ", "))
	if sinceLiteral != "" {
		soql += fmt.Sprintf(" AND LastModifiedDate >= %s", sinceLiteral)
	}

	var contacts []Contact
	if err := c.Query(ctx, soql, &contacts); err != nil {
		return nil, eris.Wrap(err, "sf: query contacts")
	}
	return contacts, nil
}

// opportunityRef is the minimal projection used to count open deals.
type opportunityRef struct {
	ID string `json:"Id" salesforce:"Id"`
}

// CountOpenOpportunities returns the number of open Opportunities on the
// given Account. Used to derive deal context for known senders.
func CountOpenOpportunities(ctx context.Context, c Client, accountID string) (int, error) {
	if accountID == "" {
		return 0, nil
	}
	soql := fmt.Sprintf(
		"SELECT Id FROM Opportunity WHERE AccountId = '%s' AND IsClosed = false",
		escapeSoql(accountID),
	)

	var opps []opportunityRef
	if err := c.Query(ctx, soql, &opps); err != nil {
		return 0, eris.Wrap(err, fmt.Sprintf("sf: count open opportunities for %s", accountID))
	}
	return len(opps), nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
