package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/relaycrm/triage/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pipeline_rules (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	name            TEXT NOT NULL,
	stage           TEXT NOT NULL,
	priority        INTEGER NOT NULL DEFAULT 0,
	conditions      TEXT NOT NULL DEFAULT '[]',
	actions         TEXT NOT NULL DEFAULT '[]',
	stop_processing INTEGER NOT NULL DEFAULT 0,
	enabled         INTEGER NOT NULL DEFAULT 1,
	match_count     INTEGER NOT NULL DEFAULT 0,
	last_matched_at DATETIME,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS config_sections (
	tenant_id  TEXT NOT NULL,
	section    TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (tenant_id, section)
);

CREATE TABLE IF NOT EXISTS ai_providers (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	base_url   TEXT,
	api_key    TEXT,
	priority   INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'ACTIVE',
	models     TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ai_executions (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	provider_id   TEXT,
	provider_name TEXT NOT NULL,
	model_name    TEXT NOT NULL,
	prompt        TEXT NOT NULL,
	response      TEXT,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost          REAL NOT NULL DEFAULT 0,
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error         TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pipeline_results (
	item_id            TEXT PRIMARY KEY,
	tenant_id          TEXT NOT NULL,
	stage              TEXT NOT NULL,
	action             TEXT NOT NULL,
	is_spam            INTEGER NOT NULL DEFAULT 0,
	category           TEXT,
	priority           TEXT NOT NULL,
	skip_ai            INTEGER NOT NULL DEFAULT 0,
	payload            TEXT NOT NULL,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS suggestions (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	context    TEXT NOT NULL,
	payload    TEXT NOT NULL DEFAULT '{}',
	confidence INTEGER NOT NULL DEFAULT 0,
	reasoning  TEXT,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	email      TEXT NOT NULL,
	name       TEXT,
	company    TEXT,
	vip        INTEGER NOT NULL DEFAULT 0,
	open_deals INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (tenant_id, email)
);

CREATE INDEX IF NOT EXISTS idx_rules_tenant_stage ON pipeline_rules(tenant_id, stage);
CREATE INDEX IF NOT EXISTS idx_providers_tenant ON ai_providers(tenant_id, priority);
CREATE INDEX IF NOT EXISTS idx_executions_tenant ON ai_executions(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_results_tenant ON pipeline_results(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_results_category ON pipeline_results(tenant_id, category);
CREATE INDEX IF NOT EXISTS idx_suggestions_tenant_status ON suggestions(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_contacts_tenant_email ON contacts(tenant_id, email);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Rules

const ruleColumns = `id, tenant_id, name, stage, priority, conditions, actions,
	stop_processing, enabled, match_count, last_matched_at, created_at, updated_at`

func (s *SQLiteStore) ListRules(ctx context.Context, tenantID string, stage model.Stage) ([]model.PipelineRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM pipeline_rules WHERE tenant_id = ?`
	args := []any{tenantID}
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(stage))
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rules")
	}
	defer rows.Close()

	var list []model.PipelineRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *r)
	}
	return list, eris.Wrap(rows.Err(), "sqlite: list rules iterate")
}

func (s *SQLiteStore) GetRule(ctx context.Context, id string) (*model.PipelineRule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM pipeline_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get rule %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) CreateRule(ctx context.Context, rule *model.PipelineRule) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pipeline_rules
		 (id, tenant_id, name, stage, priority, conditions, actions, stop_processing, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.TenantID, rule.Name, string(rule.Stage), rule.Priority,
		condJSON, actJSON, rule.StopProcessing, rule.Enabled, now, now,
	)
	return eris.Wrap(err, "sqlite: insert rule")
}

func (s *SQLiteStore) UpdateRule(ctx context.Context, rule *model.PipelineRule) error {
	rule.UpdatedAt = time.Now().UTC()

	condJSON, actJSON, err := marshalRuleParts(rule)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_rules SET name = ?, stage = ?, priority = ?, conditions = ?,
		 actions = ?, stop_processing = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		rule.Name, string(rule.Stage), rule.Priority, condJSON, actJSON,
		rule.StopProcessing, rule.Enabled, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update rule %s", rule.ID)
	}
	return checkRowsAffected(res, "rule", rule.ID)
}

func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_rules WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete rule %s", id)
	}
	return checkRowsAffected(res, "rule", id)
}

func (s *SQLiteStore) RecordRuleMatch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_rules SET match_count = match_count + 1, last_matched_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "sqlite: record rule match %s", id)
}

func (s *SQLiteStore) ImportRules(ctx context.Context, tenantID string, rules []model.PipelineRule) (int, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import rules begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
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
		_, err = tx.ExecContext(ctx,
			`INSERT INTO pipeline_rules
			 (id, tenant_id, name, stage, priority, conditions, actions, stop_processing, enabled, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, stage = excluded.stage,
			   priority = excluded.priority, conditions = excluded.conditions,
			   actions = excluded.actions, stop_processing = excluded.stop_processing,
			   enabled = excluded.enabled, updated_at = excluded.updated_at`,
			r.ID, r.TenantID, r.Name, string(r.Stage), r.Priority,
			condJSON, actJSON, r.StopProcessing, r.Enabled, now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import rule %s", r.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import rules commit")
	}
	return len(rules), nil
}

// Config sections

func (s *SQLiteStore) GetConfigSections(ctx context.Context, tenantID string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT section, data FROM config_sections WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get config sections")
	}
	defer rows.Close()

	sections := make(map[string]json.RawMessage)
	for rows.Next() {
		var section, data string
		if err := rows.Scan(&section, &data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan config section")
		}
		sections[section] = json.RawMessage(data)
	}
	return sections, eris.Wrap(rows.Err(), "sqlite: config sections iterate")
}

func (s *SQLiteStore) PutConfigSection(ctx context.Context, tenantID, section string, data json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config_sections (tenant_id, section, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (tenant_id, section) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		tenantID, section, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put config section %s", section)
}

func (s *SQLiteStore) DeleteConfigSection(ctx context.Context, tenantID, section string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM config_sections WHERE tenant_id = ? AND section = ?`, tenantID, section)
	return eris.Wrapf(err, "sqlite: delete config section %s", section)
}

// Providers

func (s *SQLiteStore) ListProviders(ctx context.Context, tenantID string) ([]model.ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, kind, base_url, api_key, priority, status, models, created_at, updated_at
		 FROM ai_providers WHERE tenant_id = ? ORDER BY priority ASC`, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list providers")
	}
	defer rows.Close()

	var list []model.ProviderConfig
	for rows.Next() {
		var p model.ProviderConfig
		var baseURL, apiKey sql.NullString
		var modelsJSON string
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Kind, &baseURL, &apiKey,
			&p.Priority, &p.Status, &modelsJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider")
		}
		p.BaseURL = baseURL.String
		p.APIKey = apiKey.String
		if err := json.Unmarshal([]byte(modelsJSON), &p.Models); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal provider models")
		}
		list = append(list, p)
	}
	return list, eris.Wrap(rows.Err(), "sqlite: list providers iterate")
}

func (s *SQLiteStore) UpsertProvider(ctx context.Context, p *model.ProviderConfig) error {
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
		return eris.Wrap(err, "sqlite: marshal provider models")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ai_providers (id, tenant_id, name, kind, base_url, api_key, priority, status, models, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, kind = excluded.kind,
		   base_url = excluded.base_url, api_key = excluded.api_key, priority = excluded.priority,
		   status = excluded.status, models = excluded.models, updated_at = excluded.updated_at`,
		p.ID, p.TenantID, p.Name, string(p.Kind), p.BaseURL, p.APIKey,
		p.Priority, string(p.Status), string(modelsJSON), p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert provider")
}

func (s *SQLiteStore) DeleteProvider(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_providers WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete provider %s", id)
	}
	return checkRowsAffected(res, "provider", id)
}

// Executions

func (s *SQLiteStore) InsertExecution(ctx context.Context, e *model.Execution) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_executions
		 (id, tenant_id, provider_id, provider_name, model_name, prompt, response,
		  input_tokens, output_tokens, cost, latency_ms, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.ProviderID, e.ProviderName, e.ModelName, e.Prompt, e.Response,
		e.InputTokens, e.OutputTokens, e.Cost, e.LatencyMs, string(e.Status), e.Error, e.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert execution")
}

func (s *SQLiteStore) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]model.Execution, error) {
	query := `SELECT id, tenant_id, provider_id, provider_name, model_name, prompt, response,
	          input_tokens, output_tokens, cost, latency_ms, status, error, created_at
	          FROM ai_executions WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, filter.TenantID)
	}
	if filter.ProviderName != "" {
		query += ` AND provider_name = ?`
		args = append(args, filter.ProviderName)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list executions")
	}
	defer rows.Close()

	var list []model.Execution
	for rows.Next() {
		var e model.Execution
		var providerID, response, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &providerID, &e.ProviderName, &e.ModelName,
			&e.Prompt, &response, &e.InputTokens, &e.OutputTokens, &e.Cost,
			&e.LatencyMs, &e.Status, &errMsg, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan execution")
		}
		e.ProviderID = providerID.String
		e.Response = response.String
		e.Error = errMsg.String
		list = append(list, e)
	}
	return list, eris.Wrap(rows.Err(), "sqlite: list executions iterate")
}

// Results

func (s *SQLiteStore) InsertResult(ctx context.Context, r *model.PipelineResult) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pipeline_results
		 (item_id, tenant_id, stage, action, is_spam, category, priority, skip_ai, payload, processing_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (item_id) DO UPDATE SET stage = excluded.stage, action = excluded.action,
		   is_spam = excluded.is_spam, category = excluded.category, priority = excluded.priority,
		   skip_ai = excluded.skip_ai, payload = excluded.payload,
		   processing_time_ms = excluded.processing_time_ms`,
		r.ItemID, r.TenantID, string(r.Stage), string(r.Action), r.IsSpam, r.Category,
		string(r.Priority), r.SkipAI, string(payload), r.ProcessingTimeMs, r.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert result")
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.PipelineResult, error) {
	query := `SELECT payload FROM pipeline_results WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, filter.TenantID)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var list []model.PipelineResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var r model.PipelineResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		list = append(list, r)
	}
	return list, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context, tenantID string, since time.Time) (*model.PipelineStats, error) {
	var stats model.PipelineStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN is_spam = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN skip_ai = 1 AND is_spam = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN stage = ? AND skip_ai = 0 AND is_spam = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(processing_time_ms), 0)
		 FROM pipeline_results WHERE tenant_id = ? AND created_at >= ?`,
		string(model.StageCompleted), tenantID, since.UTC(),
	).Scan(&stats.TotalProcessed, &stats.Rejected, &stats.SkippedAI, &stats.AIAnalyzed, &stats.AvgProcessingMs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &stats, nil
}

// Suggestions

func (s *SQLiteStore) InsertSuggestion(ctx context.Context, sg *model.Suggestion) error {
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
		return eris.Wrap(err, "sqlite: marshal suggestion payload")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suggestions (id, tenant_id, context, payload, confidence, reasoning, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.TenantID, sg.Context, string(payload), sg.Confidence,
		sg.Reasoning, string(sg.Status), sg.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert suggestion")
}

func (s *SQLiteStore) ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]model.Suggestion, error) {
	query := `SELECT id, tenant_id, context, payload, confidence, reasoning, status, created_at
	          FROM suggestions WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, filter.TenantID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suggestions")
	}
	defer rows.Close()

	var list []model.Suggestion
	for rows.Next() {
		var sg model.Suggestion
		var payload string
		var reasoning sql.NullString
		if err := rows.Scan(&sg.ID, &sg.TenantID, &sg.Context, &payload,
			&sg.Confidence, &reasoning, &sg.Status, &sg.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan suggestion")
		}
		sg.Reasoning = reasoning.String
		if err := json.Unmarshal([]byte(payload), &sg.Payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal suggestion payload")
		}
		list = append(list, sg)
	}
	return list, eris.Wrap(rows.Err(), "sqlite: list suggestions iterate")
}

func (s *SQLiteStore) UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update suggestion status %s", id)
	}
	return checkRowsAffected(res, "suggestion", id)
}

// Contacts

func (s *SQLiteStore) FindContactByEmail(ctx context.Context, tenantID, email string) (*model.Contact, error) {
	var c model.Contact
	var name, company sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, email, name, company, vip, open_deals, updated_at
		 FROM contacts WHERE tenant_id = ? AND email = ? COLLATE NOCASE`,
		tenantID, email,
	).Scan(&c.ID, &c.TenantID, &c.Email, &name, &company, &c.VIP, &c.OpenDeals, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find contact")
	}
	c.Name = name.String
	c.Company = company.String
	return &c, nil
}

func (s *SQLiteStore) UpsertContact(ctx context.Context, c *model.Contact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, tenant_id, email, name, company, vip, open_deals, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, email) DO UPDATE SET name = excluded.name,
		   company = excluded.company, vip = excluded.vip,
		   open_deals = excluded.open_deals, updated_at = excluded.updated_at`,
		c.ID, c.TenantID, c.Email, c.Name, c.Company, c.VIP, c.OpenDeals, c.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert contact")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func marshalRuleParts(r *model.PipelineRule) (string, string, error) {
	condJSON, err := json.Marshal(r.Conditions)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal rule conditions")
	}
	actJSON, err := json.Marshal(r.Actions)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal rule actions")
	}
	return string(condJSON), string(actJSON), nil
}

func scanRule(row scannable) (*model.PipelineRule, error) {
	var r model.PipelineRule
	var condJSON, actJSON string
	var lastMatched sql.NullTime

	err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.Stage, &r.Priority,
		&condJSON, &actJSON, &r.StopProcessing, &r.Enabled,
		&r.MatchCount, &lastMatched, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("rule not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan rule")
	}

	if err := json.Unmarshal([]byte(condJSON), &r.Conditions); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal rule conditions")
	}
	if err := json.Unmarshal([]byte(actJSON), &r.Actions); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal rule actions")
	}
	if lastMatched.Valid {
		t := lastMatched.Time
		r.LastMatchedAt = &t
	}
	return &r, nil
}
