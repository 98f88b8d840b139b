package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/relaycrm/triage/internal/db"
	"github.com/relaycrm/triage/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"insert_execution": `INSERT INTO ai_executions
		(id, tenant_id, provider_id, provider_name, model_name, prompt, response,
		 input_tokens, output_tokens, cost, latency_ms, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
	"insert_result": `INSERT INTO pipeline_results
		(item_id, tenant_id, stage, action, is_spam, category, priority, skip_ai, payload, processing_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (item_id) DO UPDATE SET stage = $3, action = $4, is_spam = $5,
		  category = $6, priority = $7, skip_ai = $8, payload = $9, processing_time_ms = $10`,
	"record_rule_match": `UPDATE pipeline_rules SET match_count = match_count + 1, last_matched_at = $1 WHERE id = $2`,
	"find_contact":      `SELECT id, tenant_id, email, name, company, vip, open_deals, updated_at FROM contacts WHERE tenant_id = $1 AND lower(email) = lower($2)`,
	"get_config":        `SELECT section, data FROM config_sections WHERE tenant_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems needing
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pipeline_rules (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id       TEXT NOT NULL,
	name            TEXT NOT NULL,
	stage           TEXT NOT NULL,
	priority        INTEGER NOT NULL DEFAULT 0,
	conditions      JSONB NOT NULL DEFAULT '[]',
	actions         JSONB NOT NULL DEFAULT '[]',
	stop_processing BOOLEAN NOT NULL DEFAULT false,
	enabled         BOOLEAN NOT NULL DEFAULT true,
	match_count     BIGINT NOT NULL DEFAULT 0,
	last_matched_at TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS config_sections (
	tenant_id  TEXT NOT NULL,
	section    TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, section)
);

CREATE TABLE IF NOT EXISTS ai_providers (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	base_url   TEXT,
	api_key    TEXT,
	priority   INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'ACTIVE',
	models     JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ai_executions (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id     TEXT NOT NULL,
	provider_id   TEXT,
	provider_name TEXT NOT NULL,
	model_name    TEXT NOT NULL,
	prompt        TEXT NOT NULL,
	response      TEXT,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost          DOUBLE PRECISION NOT NULL DEFAULT 0,
	latency_ms    BIGINT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pipeline_results (
	item_id            TEXT PRIMARY KEY,
	tenant_id          TEXT NOT NULL,
	stage              TEXT NOT NULL,
	action             TEXT NOT NULL,
	is_spam            BOOLEAN NOT NULL DEFAULT false,
	category           TEXT,
	priority           TEXT NOT NULL,
	skip_ai            BOOLEAN NOT NULL DEFAULT false,
	payload            JSONB NOT NULL,
	processing_time_ms BIGINT NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS suggestions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id  TEXT NOT NULL,
	context    TEXT NOT NULL,
	payload    JSONB NOT NULL DEFAULT '{}',
	confidence INTEGER NOT NULL DEFAULT 0,
	reasoning  TEXT,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id  TEXT NOT NULL,
	email      TEXT NOT NULL,
	name       TEXT,
	company    TEXT,
	vip        BOOLEAN NOT NULL DEFAULT false,
	open_deals INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, email)
);

CREATE INDEX IF NOT EXISTS idx_rules_tenant_stage ON pipeline_rules(tenant_id, stage);
CREATE INDEX IF NOT EXISTS idx_providers_tenant ON ai_providers(tenant_id, priority);
CREATE INDEX IF NOT EXISTS idx_executions_tenant ON ai_executions(tenant_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_tenant ON pipeline_results(tenant_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_category ON pipeline_results(tenant_id, category);
CREATE INDEX IF NOT EXISTS idx_suggestions_tenant_status ON suggestions(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_contacts_tenant_email ON contacts(tenant_id, lower(email));
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Rules

const pgRuleColumns = `id, tenant_id, name, stage, priority, conditions, actions,
	stop_processing, enabled, match_count, last_matched_at, created_at, updated_at`

func (s *PostgresStore) ListRules(ctx context.Context, tenantID string, stage model.Stage) ([]model.PipelineRule, error) {
	query := `SELECT ` + pgRuleColumns + ` FROM pipeline_rules WHERE tenant_id = $1`
	args := []any{tenantID}
	if stage != "" {
		query += ` AND stage = $2`
		args = append(args, string(stage))
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rules")
	}
	defer rows.Close()

	var list []model.PipelineRule
	for rows.Next() {
		r, err := scanPgRule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *r)
	}
	return list, eris.Wrap(rows.Err(), "postgres: list rules iterate")
}

func (s *PostgresStore) GetRule(ctx context.Context, id string) (*model.PipelineRule, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRuleColumns+` FROM pipeline_rules WHERE id = $1`, id)
	r, err := scanPgRule(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get rule %s", id)
	}
	return r, nil
}

// pgRow is satisfied by both pgx.Row and pgx.Rows.
type pgRow interface {
	Scan(dest ...any) error
}

func scanPgRule(row pgRow) (*model.PipelineRule, error) {
	var r model.PipelineRule
	var condJSON, actJSON []byte
	var lastMatched *time.Time

	err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.Stage, &r.Priority,
		&condJSON, &actJSON, &r.StopProcessing, &r.Enabled,
		&r.MatchCount, &lastMatched, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("rule not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan rule")
	}

	if err := json.Unmarshal(condJSON, &r.Conditions); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal rule conditions")
	}
	if err := json.Unmarshal(actJSON, &r.Actions); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal rule actions")
	}
	r.LastMatchedAt = lastMatched
	return &r, nil
}

func (s *PostgresStore) CreateRule(ctx context.Context, rule *model.PipelineRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	condJSON, actJSON, err := marshalRuleParts(rule)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO pipeline_rules
		 (id, tenant_id, name, stage, priority, conditions, actions, stop_processing, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rule.ID, rule.TenantID, rule.Name, string(rule.Stage), rule.Priority,
		condJSON, actJSON, rule.StopProcessing, rule.Enabled, now, now,
	)
	return eris.Wrap(err, "postgres: insert rule")
}

func (s *PostgresStore) UpdateRule(ctx context.Context, rule *model.PipelineRule) error {
	rule.UpdatedAt = time.Now().UTC()

	condJSON, actJSON, err := marshalRuleParts(rule)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_rules SET name = $1, stage = $2, priority = $3, conditions = $4,
		 actions = $5, stop_processing = $6, enabled = $7, updated_at = $8 WHERE id = $9`,
		rule.Name, string(rule.Stage), rule.Priority, condJSON, actJSON,
		rule.StopProcessing, rule.Enabled, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update rule %s", rule.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("rule not found: %s", rule.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteRule(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pipeline_rules WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete rule %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("rule not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) RecordRuleMatch(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pipeline_rules SET match_count = match_count + 1, last_matched_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "postgres: record rule match %s", id)
}

func (s *PostgresStore) ImportRules(ctx context.Context, tenantID string, rules []model.PipelineRule) (int, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(rules))
	for i := range rules {
		r := &rules[i]
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.TenantID = tenantID

		condJSON, actJSON, err := marshalRuleParts(r)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			r.ID, r.TenantID, r.Name, string(r.Stage), r.Priority,
			condJSON, actJSON, r.StopProcessing, r.Enabled, now, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "pipeline_rules",
		Columns:      []string{"id", "tenant_id", "name", "stage", "priority", "conditions", "actions", "stop_processing", "enabled", "created_at", "updated_at"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import rules")
	}
	return int(n), nil
}

// Config sections

func (s *PostgresStore) GetConfigSections(ctx context.Context, tenantID string) (map[string]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT section, data FROM config_sections WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get config sections")
	}
	defer rows.Close()

	sections := make(map[string]json.RawMessage)
	for rows.Next() {
		var section string
		var data []byte
		if err := rows.Scan(&section, &data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan config section")
		}
		sections[section] = json.RawMessage(data)
	}
	return sections, eris.Wrap(rows.Err(), "postgres: config sections iterate")
}

func (s *PostgresStore) PutConfigSection(ctx context.Context, tenantID, section string, data json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO config_sections (tenant_id, section, data, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, section) DO UPDATE SET data = $3, updated_at = $4`,
		tenantID, section, []byte(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put config section %s", section)
}

func (s *PostgresStore) DeleteConfigSection(ctx context.Context, tenantID, section string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM config_sections WHERE tenant_id = $1 AND section = $2`, tenantID, section)
	return eris.Wrapf(err, "postgres: delete config section %s", section)
}

// Providers

func (s *PostgresStore) ListProviders(ctx context.Context, tenantID string) ([]model.ProviderConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, kind, base_url, api_key, priority, status, models, created_at, updated_at
		 FROM ai_providers WHERE tenant_id = $1 ORDER BY priority ASC`, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list providers")
	}
	defer rows.Close()

	var list []model.ProviderConfig
	for rows.Next() {
		var p model.ProviderConfig
		var baseURL, apiKey *string
		var modelsJSON []byte
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Kind, &baseURL, &apiKey,
			&p.Priority, &p.Status, &modelsJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider")
		}
		if baseURL != nil {
			p.BaseURL = *baseURL
		}
		if apiKey != nil {
			p.APIKey = *apiKey
		}
		if err := json.Unmarshal(modelsJSON, &p.Models); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal provider models")
		}
		list = append(list, p)
	}
	return list, eris.Wrap(rows.Err(), "postgres: list providers iterate")
}

func (s *PostgresStore) UpsertProvider(ctx context.Context, p *model.ProviderConfig) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	modelsJSON, err := json.Marshal(p.Models)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal provider models")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO ai_providers (id, tenant_id, name, kind, base_url, api_key, priority, status, models, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET name = $3, kind = $4, base_url = $5, api_key = $6,
		   priority = $7, status = $8, models = $9, updated_at = $11`,
		p.ID, p.TenantID, p.Name, string(p.Kind), p.BaseURL, p.APIKey,
		p.Priority, string(p.Status), modelsJSON, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert provider")
}

func (s *PostgresStore) DeleteProvider(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ai_providers WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete provider %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("provider not found: %s", id)
	}
	return nil
}

// Executions

func (s *PostgresStore) InsertExecution(ctx context.Context, e *model.Execution) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ai_executions
		 (id, tenant_id, provider_id, provider_name, model_name, prompt, response,
		  input_tokens, output_tokens, cost, latency_ms, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.TenantID, e.ProviderID, e.ProviderName, e.ModelName, e.Prompt, e.Response,
		e.InputTokens, e.OutputTokens, e.Cost, e.LatencyMs, string(e.Status), e.Error, e.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert execution")
}

func (s *PostgresStore) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]model.Execution, error) {
	query := `SELECT id, tenant_id, provider_id, provider_name, model_name, prompt, response,
	          input_tokens, output_tokens, cost, latency_ms, status, error, created_at
	          FROM ai_executions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.TenantID != "" {
		query += fmt.Sprintf(` AND tenant_id = $%d`, argIdx)
		args = append(args, filter.TenantID)
		argIdx++
	}
	if filter.ProviderName != "" {
		query += fmt.Sprintf(` AND provider_name = $%d`, argIdx)
		args = append(args, filter.ProviderName)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list executions")
	}
	defer rows.Close()

	var list []model.Execution
	for rows.Next() {
		var e model.Execution
		var providerID, response, errMsg *string
		if err := rows.Scan(&e.ID, &e.TenantID, &providerID, &e.ProviderName, &e.ModelName,
			&e.Prompt, &response, &e.InputTokens, &e.OutputTokens, &e.Cost,
			&e.LatencyMs, &e.Status, &errMsg, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan execution")
		}
		if providerID != nil {
			e.ProviderID = *providerID
		}
		if response != nil {
			e.Response = *response
		}
		if errMsg != nil {
			e.Error = *errMsg
		}
		list = append(list, e)
	}
	return list, eris.Wrap(rows.Err(), "postgres: list executions iterate")
}

// Results

func (s *PostgresStore) InsertResult(ctx context.Context, r *model.PipelineResult) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO pipeline_results
		 (item_id, tenant_id, stage, action, is_spam, category, priority, skip_ai, payload, processing_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (item_id) DO UPDATE SET stage = $3, action = $4, is_spam = $5,
		   category = $6, priority = $7, skip_ai = $8, payload = $9, processing_time_ms = $10`,
		r.ItemID, r.TenantID, string(r.Stage), string(r.Action), r.IsSpam, r.Category,
		string(r.Priority), r.SkipAI, payload, r.ProcessingTimeMs, r.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert result")
}

func (s *PostgresStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.PipelineResult, error) {
	query := `SELECT payload FROM pipeline_results WHERE true`
	args := []any{}
	argIdx := 1

	if filter.TenantID != "" {
		query += fmt.Sprintf(` AND tenant_id = $%d`, argIdx)
		args = append(args, filter.TenantID)
		argIdx++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var list []model.PipelineResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var r model.PipelineResult
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		list = append(list, r)
	}
	return list, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) Stats(ctx context.Context, tenantID string, since time.Time) (*model.PipelineStats, error) {
	var stats model.PipelineStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN is_spam THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN skip_ai AND NOT is_spam THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN stage = $1 AND NOT skip_ai AND NOT is_spam THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(processing_time_ms), 0)
		 FROM pipeline_results WHERE tenant_id = $2 AND created_at >= $3`,
		string(model.StageCompleted), tenantID, since.UTC(),
	).Scan(&stats.TotalProcessed, &stats.Rejected, &stats.SkippedAI, &stats.AIAnalyzed, &stats.AvgProcessingMs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &stats, nil
}

// Suggestions

func (s *PostgresStore) InsertSuggestion(ctx context.Context, sg *model.Suggestion) error {
	if sg.ID == "" {
		sg.ID = uuid.New().String()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	if sg.Status == "" {
		sg.Status = model.SuggestionPending
	}

	payload, err := json.Marshal(sg.Payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal suggestion payload")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO suggestions (id, tenant_id, context, payload, confidence, reasoning, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sg.ID, sg.TenantID, sg.Context, payload, sg.Confidence,
		sg.Reasoning, string(sg.Status), sg.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert suggestion")
}

func (s *PostgresStore) ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]model.Suggestion, error) {
	query := `SELECT id, tenant_id, context, payload, confidence, reasoning, status, created_at
	          FROM suggestions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.TenantID != "" {
		query += fmt.Sprintf(` AND tenant_id = $%d`, argIdx)
		args = append(args, filter.TenantID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suggestions")
	}
	defer rows.Close()

	var list []model.Suggestion
	for rows.Next() {
		var sg model.Suggestion
		var payload []byte
		var reasoning *string
		if err := rows.Scan(&sg.ID, &sg.TenantID, &sg.Context, &payload,
			&sg.Confidence, &reasoning, &sg.Status, &sg.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan suggestion")
		}
		if reasoning != nil {
			sg.Reasoning = *reasoning
		}
		if err := json.Unmarshal(payload, &sg.Payload); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal suggestion payload")
		}
		list = append(list, sg)
	}
	return list, eris.Wrap(rows.Err(), "postgres: list suggestions iterate")
}

func (s *PostgresStore) UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE suggestions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update suggestion status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("suggestion not found: %s", id)
	}
	return nil
}

// Contacts

func (s *PostgresStore) FindContactByEmail(ctx context.Context, tenantID, email string) (*model.Contact, error) {
	var c model.Contact
	var name, company *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, email, name, company, vip, open_deals, updated_at
		 FROM contacts WHERE tenant_id = $1 AND lower(email) = lower($2)`,
		tenantID, email,
	).Scan(&c.ID, &c.TenantID, &c.Email, &name, &company, &c.VIP, &c.OpenDeals, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find contact")
	}
	if name != nil {
		c.Name = *name
	}
	if company != nil {
		c.Company = *company
	}
	return &c, nil
}

func (s *PostgresStore) UpsertContact(ctx context.Context, c *model.Contact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.UpdatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO contacts (id, tenant_id, email, name, company, vip, open_deals, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (tenant_id, email) DO UPDATE SET name = $4, company = $5,
		   vip = $6, open_deals = $7, updated_at = $8`,
		c.ID, c.TenantID, c.Email, c.Name, c.Company, c.VIP, c.OpenDeals, c.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert contact")
}

// BulkLoadContacts inserts a synced contact snapshot using the COPY
// protocol. Existing rows are not touched; callers use it to seed an
// empty tenant directory.
func (s *PostgresStore) BulkLoadContacts(ctx context.Context, contacts []model.Contact) (int64, error) {
	rows := make([][]any, 0, len(contacts))
	now := time.Now().UTC()
	for i := range contacts {
		c := &contacts[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		rows = append(rows, []any{c.ID, c.TenantID, c.Email, c.Name, c.Company, c.VIP, c.OpenDeals, now})
	}
	return db.CopyFrom(ctx, s.pool, "contacts",
		[]string{"id", "tenant_id", "email", "name", "company", "vip", "open_deals", "updated_at"}, rows)
}
