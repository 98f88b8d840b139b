package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/tenantconf"
)

// Heuristic scoring weights. Urgency starts from a neutral base and
// climbs per keyword hit, a subject hit weighing more than a body hit.
const (
	heuristicBaseUrgency = 50
	subjectKeywordWeight = 20
	bodyKeywordWeight    = 10
	maxUrgency           = 100
)

var foldCaser = cases.Fold()

// foldText normalizes and case-folds text so keyword matching is not
// defeated by Unicode variants or casing.
func foldText(s string) string {
	return foldCaser.String(norm.NFKC.String(s))
}

// heuristicAnalysis is the deterministic fallback for the analysis
// stage: keyword-driven urgency and sentiment scoring. Used when no AI
// backend is configured or the fallback chain is exhausted.
func heuristicAnalysis(item model.ContentItem, cfg *tenantconf.TenantConfig) *model.AIAnalysis {
	subject := foldText(item.Subject)
	body := foldText(item.Body)

	urgency := heuristicBaseUrgency
	for _, kw := range cfg.Keywords.Urgency {
		folded := foldText(kw)
		if folded == "" {
			continue
		}
		if strings.Contains(subject, folded) {
			urgency += subjectKeywordWeight
		}
		if strings.Contains(body, folded) {
			urgency += bodyKeywordWeight
		}
	}
	if urgency > maxUrgency {
		urgency = maxUrgency
	}

	text := subject + " " + body
	positive := countHits(text, cfg.Keywords.SentimentPositive)
	negative := countHits(text, cfg.Keywords.SentimentNegative)

	sentiment := model.SentimentNeutral
	switch {
	case negative > positive:
		sentiment = model.SentimentNegative
	case positive > negative:
		sentiment = model.SentimentPositive
	}

	analysis := &model.AIAnalysis{
		Sentiment: sentiment,
		Urgency:   urgency,
		Summary:   fmt.Sprintf("Message from %s: %s", item.SenderEmail(), item.Subject),
		ExtractedData: map[string]any{
			"analysisType": model.AnalysisTypeHeuristic,
		},
	}
	if urgency > cfg.Thresholds.UrgencyHigh {
		analysis.SuggestedActions = []string{"respond promptly", "create follow-up task"}
	}
	return analysis
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		folded := foldText(kw)
		if folded != "" && strings.Contains(text, folded) {
			hits++
		}
	}
	return hits
}
