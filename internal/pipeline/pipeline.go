// Package pipeline orchestrates the staged classification run:
// PRE_FILTER -> CLASSIFY -> AI_ANALYSIS -> COMPLETED. Each stage
// evaluates its rules in priority order; only items surviving to the
// third stage pay for an AI call.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/airouter"
	"github.com/relaycrm/triage/internal/crm"
	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/rules"
	"github.com/relaycrm/triage/internal/tenantconf"
)

// RuleSource loads tenant rules and records match statistics.
type RuleSource interface {
	ListRules(ctx context.Context, tenantID string, stage model.Stage) ([]model.PipelineRule, error)
	RecordRuleMatch(ctx context.Context, id string) error
}

// SuggestionSink persists proposed side effects raised by post actions.
type SuggestionSink interface {
	InsertSuggestion(ctx context.Context, s *model.Suggestion) error
}

// AIRouter is the completion surface the analysis stage calls.
type AIRouter interface {
	ProcessRequest(ctx context.Context, req airouter.Request) (*airouter.Response, error)
	Providers() []airouter.Provider
}

// RouterSource resolves the per-tenant AI router. A nil router or a
// router with no providers sends the analysis stage down the heuristic
// path.
type RouterSource interface {
	ForTenant(ctx context.Context, tenantID string) (AIRouter, error)
}

type registrySource struct {
	reg *airouter.Registry
}

// NewRegistrySource adapts the airouter registry to the RouterSource
// surface consumed here.
func NewRegistrySource(reg *airouter.Registry) RouterSource {
	return &registrySource{reg: reg}
}

func (s *registrySource) ForTenant(ctx context.Context, tenantID string) (AIRouter, error) {
	return s.reg.ForTenant(ctx, tenantID)
}

// ReviewBoard publishes pending suggestions for human review.
type ReviewBoard interface {
	Publish(ctx context.Context, s *model.Suggestion) error
}

// Options tune a single pipeline run.
type Options struct {
	// ForceSkipAI terminates the run after CLASSIFY regardless of
	// rule outcomes.
	ForceSkipAI bool
}

// Pipeline runs the staged classification for one tenant's items.
// Safe for concurrent use; each Process call is stateless.
type Pipeline struct {
	rules       RuleSource
	conf        *tenantconf.Loader
	routers     RouterSource
	dir         crm.Directory
	suggestions SuggestionSink
	review      ReviewBoard
}

// PipelineOption configures optional collaborators.
type PipelineOption func(*Pipeline)

// WithDirectory wires the contact directory used to derive the
// known-contact, VIP, and company context fields.
func WithDirectory(dir crm.Directory) PipelineOption {
	return func(p *Pipeline) { p.dir = dir }
}

// WithSuggestionSink wires the store the post actions write proposed
// side effects to.
func WithSuggestionSink(sink SuggestionSink) PipelineOption {
	return func(p *Pipeline) { p.suggestions = sink }
}

// WithReviewBoard wires the human-review surface pending suggestions
// are published to.
func WithReviewBoard(board ReviewBoard) PipelineOption {
	return func(p *Pipeline) { p.review = board }
}

// New creates a Pipeline. rules and conf are required; routers may be
// nil, in which case the analysis stage always uses the heuristic.
func New(ruleSrc RuleSource, conf *tenantconf.Loader, routers RouterSource, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rules:   ruleSrc,
		conf:    conf,
		routers: routers,
		dir:     crm.NewNullDirectory(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full pipeline for one item. It never returns an
// error: any stage fault is caught and the best-effort result built so
// far is returned with elapsed time recorded.
func (p *Pipeline) Process(ctx context.Context, item model.ContentItem, tenantID string, opts Options) (result *model.PipelineResult) {
	start := time.Now()
	log := zap.L().With(
		zap.String("tenant_id", tenantID),
		zap.String("item_id", item.ID),
	)

	result = &model.PipelineResult{
		ItemID:        item.ID,
		TenantID:      tenantID,
		Stage:         model.StagePreFilter,
		Action:        model.ActionProcess,
		Priority:      model.PriorityNormal,
		RulesExecuted: []string{},
	}

	finalize := func() {
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		result.CreatedAt = time.Now().UTC()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: stage panic, returning partial result",
				zap.String("stage", string(result.Stage)),
				zap.Any("panic", r),
			)
			finalize()
		}
	}()

	cfg := p.conf.Load(ctx, tenantID)
	ectx := p.buildContext(ctx, item, tenantID)

	// PRE_FILTER
	if rejected := p.runStage(ctx, model.StagePreFilter, cfg, ectx, result); rejected {
		log.Info("pipeline: rejected at pre-filter",
			zap.Strings("rules", result.RulesExecuted))
		finalize()
		return result
	}

	// CLASSIFY
	result.Stage = model.StageClassify
	if rejected := p.runStage(ctx, model.StageClassify, cfg, ectx, result); rejected {
		log.Info("pipeline: rejected at classify",
			zap.Strings("rules", result.RulesExecuted))
		finalize()
		return result
	}

	if opts.ForceSkipAI {
		result.SkipAI = true
	}
	if result.SkipAI {
		result.Stage = model.StageCompleted
		p.runPostActions(ctx, cfg, ectx, result)
		finalize()
		log.Info("pipeline: completed without analysis",
			zap.String("category", result.Category))
		return result
	}

	// AI_ANALYSIS
	result.Stage = model.StageAIAnalysis
	analysis := p.analyze(ctx, item, tenantID, cfg)
	result.AIAnalysis = analysis
	ectx.AI = analysis
	if rejected := p.runStage(ctx, model.StageAIAnalysis, cfg, ectx, result); rejected {
		finalize()
		return result
	}
	applyUrgencyPriority(result, analysis, cfg.Thresholds)

	result.Stage = model.StageCompleted
	p.runPostActions(ctx, cfg, ectx, result)
	finalize()
	log.Info("pipeline: completed",
		zap.String("category", result.Category),
		zap.String("priority", string(result.Priority)),
		zap.String("analysis", analysis.AnalysisType()),
		zap.Int64("duration_ms", result.ProcessingTimeMs),
	)
	return result
}

// buildContext derives the evaluation context, including the contact
// flags from the directory. Directory faults degrade to unknown sender.
func (p *Pipeline) buildContext(ctx context.Context, item model.ContentItem, tenantID string) *rules.EvalContext {
	ectx := rules.NewEvalContext(item)
	if c := crm.SafeLookup(ctx, p.dir, tenantID, ectx.SenderEmail); c != nil {
		ectx.IsKnownContact = true
		ectx.IsVIP = c.VIP
		ectx.HasCompany = c.Company != ""
	}
	return ectx
}

// runStage evaluates one stage's rules in priority order. Returns true
// when a REJECT terminated the run. stopProcessing ends only the rule
// loop for this stage.
func (p *Pipeline) runStage(ctx context.Context, stage model.Stage, cfg *tenantconf.TenantConfig, ectx *rules.EvalContext, result *model.PipelineResult) bool {
	tenantRules, err := p.rules.ListRules(ctx, result.TenantID, stage)
	if err != nil {
		zap.L().Warn("pipeline: rule load failed, using built-ins only",
			zap.String("tenant_id", result.TenantID),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		tenantRules = nil
	}

	for _, rule := range rules.ForStage(stage, builtinRules(stage, cfg), tenantRules) {
		if !rules.Matches(rule, ectx) {
			continue
		}
		result.RulesExecuted = append(result.RulesExecuted, rule.Name)
		p.recordMatch(ctx, rule)

		if rejected := applyActions(rule.Actions, result, ectx); rejected {
			return true
		}
		if rule.StopProcessing {
			break
		}
	}
	return false
}

// recordMatch bumps the rule's match counter. Fire and forget: a
// counter fault never affects the run.
func (p *Pipeline) recordMatch(ctx context.Context, rule model.PipelineRule) {
	if rule.Builtin || rule.ID == "" {
		return
	}
	if err := p.rules.RecordRuleMatch(ctx, rule.ID); err != nil {
		zap.L().Warn("pipeline: record rule match failed",
			zap.String("rule_id", rule.ID), zap.Error(err))
	}
}

// builtinRules selects the compiled-in rules for a stage from the
// tenant's resolved configuration.
func builtinRules(stage model.Stage, cfg *tenantconf.TenantConfig) []model.PipelineRule {
	switch stage {
	case model.StagePreFilter:
		return cfg.SystemRules.PreFilter
	case model.StageClassify:
		return cfg.SystemRules.Classify
	default:
		return nil
	}
}

// applyUrgencyPriority escalates the result priority from the analyzed
// urgency score. Rules that already set an equal or higher priority win.
func applyUrgencyPriority(result *model.PipelineResult, analysis *model.AIAnalysis, th tenantconf.Thresholds) {
	if analysis == nil {
		return
	}
	var derived model.Priority
	switch {
	case analysis.Urgency >= th.UrgencyUrgent:
		derived = model.PriorityUrgent
	case analysis.Urgency >= th.UrgencyHigh:
		derived = model.PriorityHigh
	default:
		return
	}
	if priorityRank(derived) > priorityRank(result.Priority) {
		result.Priority = derived
	}
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityUrgent:
		return 3
	case model.PriorityHigh:
		return 2
	case model.PriorityNormal:
		return 1
	default:
		return 0
	}
}
