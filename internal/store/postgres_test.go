package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/triage/internal/model"
)

// anyArgs returns n pgxmock.AnyArg() matchers; pgxmock requires the expected
// argument count to match the call even when individual values are not checked.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_GetRule(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "name", "stage", "priority", "conditions", "actions",
		"stop_processing", "enabled", "match_count", "last_matched_at", "created_at", "updated_at",
	}).AddRow(
		"r1", "t1", "Reject competitor", "PRE_FILTER", 100,
		[]byte(`[{"field":"fromDomain","operator":"equals","value":"competitor.com"}]`),
		[]byte(`[{"type":"REJECT"}]`),
		true, true, int64(3), (*time.Time)(nil), now, now,
	)
	mock.ExpectQuery(`SELECT .+ FROM pipeline_rules WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(rows)

	rule, err := s.GetRule(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Reject competitor", rule.Name)
	assert.Equal(t, model.StagePreFilter, rule.Stage)
	require.Len(t, rule.Conditions, 1)
	assert.Equal(t, model.OpEquals, rule.Conditions[0].Operator)
	assert.Equal(t, int64(3), rule.MatchCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRule_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM pipeline_rules WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRule(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get rule nope")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRules(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	matched := now.Add(-time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "name", "stage", "priority", "conditions", "actions",
		"stop_processing", "enabled", "match_count", "last_matched_at", "created_at", "updated_at",
	}).AddRow(
		"r1", "t1", "Reject competitor", "PRE_FILTER", 100,
		[]byte(`[{"field":"fromDomain","operator":"equals","value":"competitor.com"}]`),
		[]byte(`[{"type":"REJECT"}]`),
		true, true, int64(3), &matched, now, now,
	).AddRow(
		"r2", "t1", "Tag invoices", "PRE_FILTER", 50,
		[]byte(`[{"field":"subject","operator":"contains","value":"invoice"}]`),
		[]byte(`[{"type":"SET_CATEGORY","value":"invoice"}]`),
		false, true, int64(0), (*time.Time)(nil), now, now,
	)
	mock.ExpectQuery(`SELECT .+ FROM pipeline_rules WHERE tenant_id = \$1 AND stage = \$2`).
		WithArgs("t1", "PRE_FILTER").
		WillReturnRows(rows)

	list, err := s.ListRules(context.Background(), "t1", model.StagePreFilter)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Reject competitor", list[0].Name)
	require.NotNil(t, list[0].LastMatchedAt)
	assert.Equal(t, matched, *list[0].LastMatchedAt)
	assert.Equal(t, "r2", list[1].ID)
	assert.Nil(t, list[1].LastMatchedAt)
	require.Len(t, list[1].Actions, 1)
	assert.Equal(t, model.ActionTypeSetCategory, list[1].Actions[0].Type)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRule(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO pipeline_rules`).
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rule := sampleRule("t1", model.StagePreFilter)
	require.NoError(t, s.CreateRule(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRule_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pipeline_rules SET`).
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	rule := sampleRule("t1", model.StagePreFilter)
	rule.ID = "missing"
	err := s.UpdateRule(context.Background(), rule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule not found: missing")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRule(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM pipeline_rules WHERE id = \$1`).
		WithArgs("r1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteRule(context.Background(), "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRuleMatch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pipeline_rules SET match_count = match_count \+ 1`).
		WithArgs(pgxmock.AnyArg(), "r1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.RecordRuleMatch(context.Background(), "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetConfigSections(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"section", "data"}).
		AddRow("contentLimits", []byte(`{"aiContentLimit":2000}`)).
		AddRow("keywords", []byte(`{"urgency":["asap"]}`))
	mock.ExpectQuery(`SELECT section, data FROM config_sections WHERE tenant_id = \$1`).
		WithArgs("t1").
		WillReturnRows(rows)

	sections, err := s.GetConfigSections(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.JSONEq(t, `{"aiContentLimit":2000}`, string(sections["contentLimits"]))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutConfigSection(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO config_sections`).
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutConfigSection(context.Background(), "t1", "keywords", json.RawMessage(`{"urgency":[]}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProviders(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	key := "sk-ant-test"

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "name", "kind", "base_url", "api_key",
		"priority", "status", "models", "created_at", "updated_at",
	}).AddRow(
		"p1", "t1", "anthropic-primary", "anthropic", (*string)(nil), &key,
		1, "ACTIVE", []byte(`[{"name":"claude-3-5-haiku-latest","max_tokens":4096}]`), now, now,
	)
	mock.ExpectQuery(`SELECT .+ FROM ai_providers WHERE tenant_id = \$1 ORDER BY priority ASC`).
		WithArgs("t1").
		WillReturnRows(rows)

	list, err := s.ListProviders(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.ProviderAnthropic, list[0].Kind)
	assert.Equal(t, "sk-ant-test", list[0].APIKey)
	require.Len(t, list[0].Models, 1)
	assert.Equal(t, 4096, list[0].Models[0].MaxTokens)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProvider_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM ai_providers WHERE id = \$1`).
		WithArgs("nope").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteProvider(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertExecution(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO ai_executions`).
		WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	e := &model.Execution{
		TenantID:     "t1",
		ProviderName: "anthropic-primary",
		ModelName:    "claude-3-5-haiku-latest",
		Prompt:       "analyze",
		Status:       model.ExecutionSuccess,
	}
	require.NoError(t, s.InsertExecution(context.Background(), e))
	assert.NotEmpty(t, e.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListExecutions_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	errMsg := "429 rate limited"

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "provider_id", "provider_name", "model_name", "prompt", "response",
		"input_tokens", "output_tokens", "cost", "latency_ms", "status", "error", "created_at",
	}).AddRow(
		"e1", "t1", (*string)(nil), "openai-fallback", "gpt-4o-mini", "analyze", (*string)(nil),
		0, 0, 0.0, int64(0), "FAILED", &errMsg, now,
	)
	mock.ExpectQuery(`SELECT .+ FROM ai_executions WHERE true AND tenant_id = \$1 AND status = \$2`).
		WithArgs("t1", "FAILED", 100).
		WillReturnRows(rows)

	list, err := s.ListExecutions(context.Background(), ExecutionFilter{
		TenantID: "t1",
		Status:   model.ExecutionFailed,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "429 rate limited", list[0].Error)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO pipeline_results`).
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.InsertResult(context.Background(), sampleResult("m1", "t1")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload, err := json.Marshal(sampleResult("m1", "t1"))
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"payload"}).AddRow(payload)
	mock.ExpectQuery(`SELECT payload FROM pipeline_results WHERE true AND tenant_id = \$1`).
		WithArgs("t1", 100).
		WillReturnRows(rows)

	list, err := s.ListResults(context.Background(), ResultFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "m1", list[0].ItemID)
	assert.Equal(t, "inquiry", list[0].Category)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"count", "rejected", "skipped", "analyzed", "avg"}).
		AddRow(int64(10), int64(2), int64(3), int64(5), 48.5)
	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WithArgs("COMPLETED", "t1", pgxmock.AnyArg()).
		WillReturnRows(rows)

	stats, err := s.Stats(context.Background(), "t1", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalProcessed)
	assert.Equal(t, int64(2), stats.Rejected)
	assert.Equal(t, int64(3), stats.SkippedAI)
	assert.Equal(t, int64(5), stats.AIAnalyzed)
	assert.InDelta(t, 48.5, stats.AvgProcessingMs, 1e-9)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateSuggestionStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE suggestions SET status = \$1 WHERE id = \$2`).
		WithArgs("ACCEPTED", "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSuggestionStatus(context.Background(), "nope", model.SuggestionAccepted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suggestion not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindContactByEmail(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	name := "Alice Smith"
	company := "Acme"

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "email", "name", "company", "vip", "open_deals", "updated_at",
	}).AddRow("c1", "t1", "alice@acme.com", &name, &company, true, 2, now)
	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE tenant_id = \$1 AND lower\(email\) = lower\(\$2\)`).
		WithArgs("t1", "Alice@Acme.com").
		WillReturnRows(rows)

	c, err := s.FindContactByEmail(context.Background(), "t1", "Alice@Acme.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.VIP)
	assert.Equal(t, "Acme", c.Company)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindContactByEmail_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE tenant_id = \$1`).
		WithArgs("t1", "bob@acme.com").
		WillReturnError(pgx.ErrNoRows)

	c, err := s.FindContactByEmail(context.Background(), "t1", "bob@acme.com")
	require.NoError(t, err)
	assert.Nil(t, c)

	assert.NoError(t, mock.ExpectationsWereMet())
}
