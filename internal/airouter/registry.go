package airouter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/pkg/anthropic"
	"github.com/relaycrm/triage/pkg/openai"
)

// ProviderSource loads backend configurations for a tenant.
type ProviderSource interface {
	ListProviders(ctx context.Context, tenantID string) ([]model.ProviderConfig, error)
}

// Registry builds and caches one Router per tenant. Routers are rebuilt
// when the tenant's backend configuration changes via Invalidate.
type Registry struct {
	src     ProviderSource
	log     ExecutionLog
	timeout time.Duration

	mu      sync.RWMutex
	routers map[string]*Router
}

// NewRegistry creates a Registry. timeout bounds each backend call.
func NewRegistry(src ProviderSource, log ExecutionLog, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Registry{
		src:     src,
		log:     log,
		timeout: timeout,
		routers: make(map[string]*Router),
	}
}

// ForTenant returns the Router for a tenant, building it on first use.
// Backends with missing credentials or DISABLED status are skipped.
func (g *Registry) ForTenant(ctx context.Context, tenantID string) (*Router, error) {
	g.mu.RLock()
	r, ok := g.routers[tenantID]
	g.mu.RUnlock()
	if ok {
		return r, nil
	}

	configs, err := g.src.ListProviders(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	providers := buildProviders(tenantID, configs)
	r = NewRouter(tenantID, providers, g.log, WithTimeout(g.timeout))

	g.mu.Lock()
	g.routers[tenantID] = r
	g.mu.Unlock()
	return r, nil
}

// Invalidate drops the cached Router for a tenant.
func (g *Registry) Invalidate(tenantID string) {
	g.mu.Lock()
	delete(g.routers, tenantID)
	g.mu.Unlock()
}

// buildProviders constructs Provider adapters from configs, which arrive
// sorted by ascending priority from the store.
func buildProviders(tenantID string, configs []model.ProviderConfig) []Provider {
	var providers []Provider
	for _, cfg := range configs {
		if cfg.Status == model.ProviderDisabled {
			continue
		}
		if cfg.APIKey == "" {
			zap.L().Warn("skipping backend with no api key",
				zap.String("tenant_id", tenantID),
				zap.String("provider", cfg.Name),
			)
			continue
		}

		switch cfg.Kind {
		case model.ProviderAnthropic:
			client := anthropic.NewClient(cfg.APIKey, anthropic.WithBaseURL(cfg.BaseURL))
			providers = append(providers, NewAnthropicProvider(cfg, client))
		case model.ProviderOpenAI:
			client := openai.NewClient(cfg.APIKey, openai.WithBaseURL(cfg.BaseURL))
			providers = append(providers, NewOpenAIProvider(cfg, client))
		default:
			zap.L().Warn("skipping backend with unknown kind",
				zap.String("tenant_id", tenantID),
				zap.String("provider", cfg.Name),
				zap.String("kind", string(cfg.Kind)),
			)
		}
	}
	return providers
}
