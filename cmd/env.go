package main

import (
	"context"
	"os"
	"time"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/airouter"
	"github.com/relaycrm/triage/internal/crm"
	"github.com/relaycrm/triage/internal/pipeline"
	"github.com/relaycrm/triage/internal/store"
	"github.com/relaycrm/triage/internal/tenantconf"
	"github.com/relaycrm/triage/pkg/notion"
	sfpkg "github.com/relaycrm/triage/pkg/salesforce"
)

// appEnv bundles the wired pipeline and its collaborators for one
// command invocation.
type appEnv struct {
	store    store.Store
	loader   *tenantconf.Loader
	registry *airouter.Registry
	pipe     *pipeline.Pipeline
}

// Close releases held resources.
func (e *appEnv) Close() {
	if err := e.store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "triage.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv builds the full pipeline environment: store, tenant config
// loader, AI router registry, contact directory, and optional Notion
// review board.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	ttl := time.Duration(cfg.Pipeline.ConfigCacheTTLMin) * time.Minute
	loader := tenantconf.NewLoader(st, ttl)

	aiTimeout := time.Duration(cfg.Pipeline.AITimeoutSecs) * time.Second
	registry := airouter.NewRegistry(st, st, aiTimeout)

	opts := []pipeline.PipelineOption{
		pipeline.WithDirectory(crm.NewStoreDirectory(st)),
		pipeline.WithSuggestionSink(st),
	}
	if cfg.Notion.Token != "" && cfg.Notion.SuggestionDB != "" {
		nc := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(3))
		opts = append(opts, pipeline.WithReviewBoard(
			pipeline.NewNotionReviewBoard(nc, cfg.Notion.SuggestionDB)))
	}

	pipe := pipeline.New(st, loader, pipeline.NewRegistrySource(registry), opts...)

	return &appEnv{
		store:    st,
		loader:   loader,
		registry: registry,
		pipe:     pipe,
	}, nil
}

// initSalesforce authenticates against Salesforce with the configured
// JWT credentials. Used only by the contact sync command.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (TRIAGE_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := gosf.Init(gosf.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(5)), nil
}
