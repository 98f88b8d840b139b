package model

import "time"

// Contact is a CRM directory entry used to derive the known-contact and
// VIP context fields. Rows are synced in from the CRM collaborator; the
// pipeline only reads them.
type Contact struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Company   string    `json:"company,omitempty"`
	VIP       bool      `json:"vip"`
	OpenDeals int       `json:"open_deals"`
	UpdatedAt time.Time `json:"updated_at"`
}
