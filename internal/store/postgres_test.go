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

	"github.com/sells-group/claim-intel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func strPtr(s string) *string { return &s }

func TestPostgresStore_GetClaim(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	claim := testClaim("clm-1", "org-1", "State Farm")
	payload, err := json.Marshal(claim)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM claims WHERE id = \$1`).
		WithArgs("clm-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.GetClaim(context.Background(), "clm-1")
	require.NoError(t, err)
	assert.Equal(t, claim, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClaim_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM claims WHERE id = \$1`).
		WithArgs("clm-missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetClaim(context.Background(), "clm-missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrClaimNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertClaim(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO claims`).
		WithArgs("clm-1", "org-1", "State Farm", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertClaim(context.Background(), testClaim("clm-1", "org-1", "State Farm"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendStateEntry_FirstEntry(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT current_state FROM state_history`).
		WithArgs("clm-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO state_history`).
		WithArgs("hist-1", "clm-1", "org-1", "INTAKE", (*string)(nil), "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.AppendStateEntry(context.Background(), model.StateHistoryEntry{
		ID:           "hist-1",
		ClaimID:      "clm-1",
		OrgID:        "org-1",
		CurrentState: model.StateIntake,
		CreatedAt:    time.Now().UTC(),
	}, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendStateEntry_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT current_state FROM state_history`).
		WithArgs("clm-1").
		WillReturnRows(pgxmock.NewRows([]string{"current_state"}).AddRow(strPtr("SUBMITTED")))
	mock.ExpectRollback()

	// Writer validated its transition from INSPECTED, but another writer
	// already advanced the claim to SUBMITTED.
	inspected := model.StateInspected
	err := s.AppendStateEntry(context.Background(), model.StateHistoryEntry{
		ID:           "hist-2",
		ClaimID:      "clm-1",
		OrgID:        "org-1",
		CurrentState: model.StateEstimateDrafted,
		CreatedAt:    time.Now().UTC(),
	}, &inspected)
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestStateEntry(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	createdAt := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, claim_id, org_id, current_state, previous_state, notes, created_at`).
		WithArgs("clm-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "claim_id", "org_id", "current_state", "previous_state", "notes", "created_at"}).
			AddRow("hist-2", "clm-1", "org-1", "INSPECTED", strPtr("INTAKE"), strPtr("adjuster visit"), createdAt))

	entry, err := s.LatestStateEntry(context.Background(), "clm-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, model.StateInspected, entry.CurrentState)
	require.NotNil(t, entry.PreviousState)
	assert.Equal(t, model.StateIntake, *entry.PreviousState)
	assert.Equal(t, "adjuster visit", entry.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestStateEntry_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, claim_id, org_id, current_state, previous_state, notes, created_at`).
		WithArgs("clm-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "claim_id", "org_id", "current_state", "previous_state", "notes", "created_at"}))

	entry, err := s.LatestStateEntry(context.Background(), "clm-1")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRules(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	trigger := []byte(`{"all":[{"path":"estimate.value","op":"gt","value":25000}]}`)
	action := []byte(`{"type":"escalate","description":"Route to senior adjuster"}`)
	mock.ExpectQuery(`SELECT id, name, description, trigger_expr, action, enabled FROM rules`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "trigger_expr", "action", "enabled"}).
			AddRow("rule-high-value", "High value escalation", strPtr("Escalate large estimates"), trigger, action, true))

	rules, err := s.ListRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "rule-high-value", rules[0].ID)
	assert.Equal(t, model.ActionEscalate, rules[0].Action.Type)
	assert.JSONEq(t, string(trigger), string(rules[0].Trigger))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertRule(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("rule-1", "Test rule", "", pgxmock.AnyArg(), pgxmock.AnyArg(), true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertRule(context.Background(), model.RuleDefinition{
		ID:      "rule-1",
		Name:    "Test rule",
		Trigger: json.RawMessage(`{"always":true}`),
		Action:  model.RuleAction{Type: model.ActionRecommend},
		Enabled: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutEmbedding(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("clm-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutEmbedding(context.Background(), "clm-1", []float64{0.5, 0.25})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertStormEvents_StagedCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	columns := []string{"id", "name", "event_date", "peril", "magnitude", "min_lon", "min_lat", "max_lon", "max_lat", "rings"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE storm_events_load`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"storm_events_load"}, columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO storm_events`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.InsertStormEvents(context.Background(), []model.StormEvent{
		{ID: "storm-1", Peril: "hail", Rings: [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}},
		{ID: "storm-2", Peril: "wind", Rings: [][][]float64{{{2, 2}, {3, 2}, {3, 3}, {2, 2}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertStormEvents_ReloadSkipsDuplicates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	columns := []string{"id", "name", "event_date", "peril", "magnitude", "min_lon", "min_lat", "max_lon", "max_lat", "rings"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE storm_events_load`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"storm_events_load"}, columns).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO storm_events`).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	// Same shapefile loaded twice: every id already exists, nothing inserted.
	n, err := s.InsertStormEvents(context.Background(), []model.StormEvent{
		{ID: "storm-1", Peril: "hail", Rings: [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StormEventsNear(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	eventDate := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	rings := []byte(`[[[-97.5,32.5],[-96.5,32.5],[-96.5,33.5],[-97.5,33.5],[-97.5,32.5]]]`)
	mock.ExpectQuery(`SELECT id, name, event_date, peril, magnitude`).
		WithArgs(-97.0, 33.0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "event_date", "peril", "magnitude", "min_lon", "min_lat", "max_lon", "max_lat", "rings"}).
			AddRow("storm-1", strPtr("May hail swath"), &eventDate, strPtr("hail"), 1.75, -97.5, 32.5, -96.5, 33.5, rings))

	events, err := s.StormEventsNear(context.Background(), -97.0, 33.0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "storm-1", events[0].ID)
	assert.Equal(t, "May hail swath", events[0].Name)
	assert.Equal(t, "hail", events[0].Peril)
	require.NotNil(t, events[0].EventDate)
	assert.True(t, events[0].EventDate.Equal(eventDate))
	require.Len(t, events[0].Rings, 1)
	assert.Len(t, events[0].Rings[0], 5)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendActionLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO action_log`).
		WithArgs("log-1", "clm-1", "orchestrator", "orchestrate", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendActionLog(context.Background(), model.ActionLogEntry{
		ID:         "log-1",
		ClaimID:    "clm-1",
		AgentID:    "orchestrator",
		ActionType: "orchestrate",
		InputData:  map[string]any{"request_type": "full_intelligence"},
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
