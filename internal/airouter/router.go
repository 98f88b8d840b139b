package airouter

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/resilience"
)

// ExecutionLog records every backend call for cost reporting.
type ExecutionLog interface {
	InsertExecution(ctx context.Context, e *model.Execution) error
}

// Router dispatches requests to a tenant's backends in priority order.
// Calls run through a per-backend circuit breaker and transient-error retry.
type Router struct {
	tenantID  string
	providers []Provider
	log       ExecutionLog
	timeout   time.Duration
	breakers  *resilience.ProviderBreakers
	retry     resilience.RetryConfig
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTimeout sets the per-call timeout. Default 60s.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetryConfig overrides the transient-error retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) RouterOption {
	return func(r *Router) {
		r.retry = cfg
	}
}

// NewRouter creates a Router over the given backends, which must already be
// sorted by ascending priority.
func NewRouter(tenantID string, providers []Provider, log ExecutionLog, opts ...RouterOption) *Router {
	r := &Router{
		tenantID:  tenantID,
		providers: providers,
		log:       log,
		timeout:   60 * time.Second,
		breakers:  resilience.NewProviderBreakers(resilience.DefaultCircuitBreakerConfig()),
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Providers returns the configured backends in priority order.
func (r *Router) Providers() []Provider {
	return r.providers
}

// ExecuteRequest runs one completion call against a specific backend,
// recording the execution outcome regardless of success or failure.
func (r *Router) ExecuteRequest(ctx context.Context, p Provider, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = p.DefaultModel()
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cb := r.breakers.Get(p.Name())
	retryCfg := r.retry
	retryCfg.OnRetry = resilience.RetryLogger(p.Name(), "completion")
	if retryCfg.ShouldRetry == nil {
		// A rate-limited backend yields to the next one in the chain
		// instead of waiting out its limiter.
		retryCfg.ShouldRetry = func(err error) bool {
			return resilience.IsTransient(err) && !resilience.IsRateLimited(err)
		}
	}

	resp, err := resilience.DoVal(callCtx, retryCfg, func(ctx context.Context) (*Response, error) {
		return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*Response, error) {
			return p.GenerateCompletion(ctx, req)
		})
	})

	r.recordExecution(ctx, p, req, resp, err)

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ExecuteWithFallback tries each backend in priority order until one
// succeeds. A named model routes to the backends serving it first; when
// none serve it, or all of them fail, the chain runs again with each
// backend's own default model. Every attempt is logged. Returns the
// last error if all fail.
func (r *Router) ExecuteWithFallback(ctx context.Context, req Request) (*Response, error) {
	if len(r.providers) == 0 {
		return nil, eris.Errorf("airouter: no backends configured for tenant %s", r.tenantID)
	}

	var lastErr error
	if req.Model != "" {
		served := false
		for _, p := range r.providers {
			if _, ok := providerServes(p, req.Model); !ok {
				continue
			}
			served = true
			resp, err := r.ExecuteRequest(ctx, p, req)
			if err == nil {
				return resp, nil
			}
			lastErr = err
			r.warnFallback(p, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
		}
		if !served {
			zap.L().Warn("requested model not served by any backend, using default models",
				zap.String("tenant_id", r.tenantID),
				zap.String("model", req.Model),
			)
		}
	}

	// Default-model pass. A backend already tried above with the same
	// model is skipped.
	fallback := req
	fallback.Model = ""
	for _, p := range r.providers {
		if req.Model != "" && req.Model == p.DefaultModel() {
			continue
		}
		resp, err := r.ExecuteRequest(ctx, p, fallback)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.warnFallback(p, err)
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	return nil, eris.Wrap(lastErr, "airouter: all backends failed")
}

func (r *Router) warnFallback(p Provider, err error) {
	zap.L().Warn("backend failed, trying next",
		zap.String("tenant_id", r.tenantID),
		zap.String("provider", p.Name()),
		zap.String("error_class", resilience.ClassifyError(err)),
		zap.Error(err),
	)
}

// ProcessRequest is the main entry point: a request with no model set runs
// on the highest-priority backend's default model, falling back down the
// chain on failure.
func (r *Router) ProcessRequest(ctx context.Context, req Request) (*Response, error) {
	return r.ExecuteWithFallback(ctx, req)
}

// providerServes reports whether the backend is configured for the model.
// Backends with an empty model list serve any model.
func providerServes(p Provider, modelName string) (model.ModelConfig, bool) {
	models := p.AvailableModels()
	if len(models) == 0 {
		return model.ModelConfig{}, true
	}
	for _, m := range models {
		if m.Name == modelName {
			return m, true
		}
	}
	return model.ModelConfig{}, false
}

func (r *Router) recordExecution(ctx context.Context, p Provider, req Request, resp *Response, callErr error) {
	if r.log == nil {
		return
	}

	e := &model.Execution{
		TenantID:     r.tenantID,
		ProviderName: p.Name(),
		ModelName:    req.Model,
		Prompt:       promptText(req),
	}
	if callErr != nil {
		e.Status = model.ExecutionFailed
		e.Error = callErr.Error()
	} else {
		e.Status = model.ExecutionSuccess
		e.Response = resp.Content
		e.ModelName = resp.Model
		e.InputTokens = resp.Usage.InputTokens
		e.OutputTokens = resp.Usage.OutputTokens
		e.Cost = resp.Cost
		e.LatencyMs = resp.Latency.Milliseconds()
	}

	// Logging must not fail the call.
	if err := r.log.InsertExecution(ctx, e); err != nil {
		zap.L().Warn("failed to record execution",
			zap.String("tenant_id", r.tenantID),
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
	}
}

// promptText flattens the request messages for the execution record.
func promptText(req Request) string {
	var out string
	for i, m := range req.Messages {
		if i > 0 {
			out += "\n"
		}
		out += m.Content
	}
	return out
}
