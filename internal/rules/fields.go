// Package rules implements the condition engine: a closed field
// vocabulary over items and their derived context, evaluated by
// prioritized rules within each pipeline stage.
package rules

import (
	"strconv"

	"github.com/relaycrm/triage/internal/model"
)

// EvalContext carries the item plus the derived fields rules can
// condition on. AI is nil until the analysis stage has run.
type EvalContext struct {
	Item           model.ContentItem
	SenderEmail    string
	SenderDomain   string
	IsKnownContact bool
	IsVIP          bool
	HasCompany     bool
	Tags           []string
	AI             *model.AIAnalysis
}

// NewEvalContext derives the sender fields from the item. The contact
// flags default to false and are filled in by the orchestrator.
func NewEvalContext(item model.ContentItem) *EvalContext {
	return &EvalContext{
		Item:         item,
		SenderEmail:  item.SenderEmail(),
		SenderDomain: item.SenderDomain(),
	}
}

// fieldResolvers is the closed vocabulary of condition fields. A field
// missing from this table, or resolving to not-present, fails its
// condition regardless of operator.
var fieldResolvers = map[string]func(*EvalContext) (string, bool){
	"from":      func(c *EvalContext) (string, bool) { return c.Item.From, c.Item.From != "" },
	"fromName":  func(c *EvalContext) (string, bool) { return c.Item.FromName, c.Item.FromName != "" },
	"fromEmail": func(c *EvalContext) (string, bool) { return c.SenderEmail, c.SenderEmail != "" },
	"fromDomain": func(c *EvalContext) (string, bool) {
		return c.SenderDomain, c.SenderDomain != ""
	},
	"to":      func(c *EvalContext) (string, bool) { return c.Item.To, c.Item.To != "" },
	"channel": func(c *EvalContext) (string, bool) { return c.Item.ChannelID, c.Item.ChannelID != "" },
	"subject": func(c *EvalContext) (string, bool) { return c.Item.Subject, c.Item.Subject != "" },
	"body":    func(c *EvalContext) (string, bool) { return c.Item.Body, c.Item.Body != "" },
	"isKnownContact": func(c *EvalContext) (string, bool) {
		return strconv.FormatBool(c.IsKnownContact), true
	},
	// Legacy alias kept for stored rules.
	"isExistingContact": func(c *EvalContext) (string, bool) {
		return strconv.FormatBool(c.IsKnownContact), true
	},
	"isVIP":      func(c *EvalContext) (string, bool) { return strconv.FormatBool(c.IsVIP), true },
	"hasCompany": func(c *EvalContext) (string, bool) { return strconv.FormatBool(c.HasCompany), true },
	"ai.sentiment": func(c *EvalContext) (string, bool) {
		if c.AI == nil {
			return "", false
		}
		return string(c.AI.Sentiment), true
	},
	"ai.urgency": func(c *EvalContext) (string, bool) {
		if c.AI == nil {
			return "", false
		}
		return strconv.Itoa(c.AI.Urgency), true
	},
}

// Resolve returns the value of a named field, or ok=false when the
// field is unknown or not present on this item.
func (c *EvalContext) Resolve(field string) (string, bool) {
	r, ok := fieldResolvers[field]
	if !ok {
		return "", false
	}
	return r(c)
}
