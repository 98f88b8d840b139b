package model

import (
	"strings"
	"time"
)

// Stage represents a phase of the classification pipeline, ordered by
// increasing processing cost.
type Stage string

const (
	StagePreFilter  Stage = "PRE_FILTER"
	StageClassify   Stage = "CLASSIFY"
	StageAIAnalysis Stage = "AI_ANALYSIS"
	StageCompleted  Stage = "COMPLETED"
)

// Action is the final disposition of a processed item.
type Action string

const (
	ActionProcess Action = "PROCESS"
	ActionReject  Action = "REJECT"
	ActionArchive Action = "ARCHIVE"
	ActionSkipAI  Action = "SKIP_AI"
)

// Priority levels assigned by classification rules or AI analysis.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Sentiment is the polarity of an analyzed item.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// ContentItem is the unit of work: an inbound email, captured note, or
// voice transcript. It is owned by the ingestion collaborator and is
// read-only to the pipeline once admitted.
type ContentItem struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	FromName   string    `json:"from_name,omitempty"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	HTML       string    `json:"html,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	ChannelID  string    `json:"channel_id"`
}

// SenderEmail extracts the bare address from the From header, which may
// be either "Name <addr@example.com>" or a bare address.
func (c ContentItem) SenderEmail() string {
	from := strings.TrimSpace(c.From)
	if open := strings.LastIndex(from, "<"); open >= 0 {
		if close := strings.Index(from[open:], ">"); close > 0 {
			return strings.ToLower(from[open+1 : open+close])
		}
	}
	return strings.ToLower(from)
}

// SenderDomain returns the domain part of the sender address, or "" when
// the address is malformed.
func (c ContentItem) SenderDomain() string {
	email := c.SenderEmail()
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
