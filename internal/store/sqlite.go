package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/claim-intel/internal/model"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS claims (
	id         TEXT PRIMARY KEY,
	org_id     TEXT NOT NULL,
	carrier    TEXT,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS state_history (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	claim_id       TEXT NOT NULL,
	org_id         TEXT NOT NULL,
	current_state  TEXT NOT NULL,
	previous_state TEXT,
	notes          TEXT,
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	trigger_expr TEXT NOT NULL,
	action      TEXT NOT NULL,
	enabled     INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS claim_embeddings (
	claim_id   TEXT PRIMARY KEY,
	vector     TEXT NOT NULL,
	indexed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS storm_events (
	id         TEXT PRIMARY KEY,
	name       TEXT,
	event_date DATETIME,
	peril      TEXT,
	magnitude  REAL,
	min_lon    REAL NOT NULL,
	min_lat    REAL NOT NULL,
	max_lon    REAL NOT NULL,
	max_lat    REAL NOT NULL,
	rings      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS action_log (
	id          TEXT PRIMARY KEY,
	claim_id    TEXT NOT NULL,
	agent_id    TEXT NOT NULL,
	action_type TEXT NOT NULL,
	input_data  TEXT,
	output_data TEXT,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_state_history_claim ON state_history(claim_id, seq);
CREATE INDEX IF NOT EXISTS idx_claims_org ON claims(org_id);
CREATE INDEX IF NOT EXISTS idx_action_log_claim ON action_log(claim_id);
CREATE INDEX IF NOT EXISTS idx_storm_events_bbox ON storm_events(min_lon, max_lon, min_lat, max_lat);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetClaim returns the claim or ErrClaimNotFound.
func (s *SQLiteStore) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM claims WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get claim")
	}

	var claim model.Claim
	if err := json.Unmarshal([]byte(payload), &claim); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode claim")
	}
	return &claim, nil
}

func (s *SQLiteStore) UpsertClaim(ctx context.Context, claim model.Claim) error {
	payload, err := json.Marshal(claim)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode claim")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (id, org_id, carrier, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET org_id = excluded.org_id,
			carrier = excluded.carrier, payload = excluded.payload`,
		claim.ID, claim.OrgID, claim.Carrier, string(payload), claim.CreatedAt.UTC())
	return eris.Wrap(err, "sqlite: upsert claim")
}

func (s *SQLiteStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]model.Claim, error) {
	query := `SELECT payload FROM claims WHERE 1=1`
	var args []any
	if filter.OrgID != "" {
		query += ` AND org_id = ?`
		args = append(args, filter.OrgID)
	}
	if filter.Carrier != "" {
		query += ` AND carrier = ?`
		args = append(args, filter.Carrier)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list claims")
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim")
		}
		var c model.Claim
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode claim")
		}
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "sqlite: list claims")
}

// AppendStateEntry appends a history row after re-checking the latest state
// inside a transaction. A mismatch with expectedPrev fails with
// ErrStateConflict so the caller can re-read and retry.
func (s *SQLiteStore) AppendStateEntry(ctx context.Context, entry model.StateHistoryEntry, expectedPrev *model.ClaimState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append state")
	}
	defer tx.Rollback()

	var latest sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT current_state FROM state_history
		WHERE claim_id = ? ORDER BY seq DESC LIMIT 1`, entry.ClaimID).Scan(&latest)
	if err != nil && err != sql.ErrNoRows {
		return eris.Wrap(err, "sqlite: read latest state")
	}

	if !stateMatches(latest, expectedPrev) {
		return ErrStateConflict
	}

	var prev any
	if entry.PreviousState != nil {
		prev = string(*entry.PreviousState)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO state_history (id, claim_id, org_id, current_state, previous_state, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ClaimID, entry.OrgID, string(entry.CurrentState), prev, entry.Notes, entry.CreatedAt.UTC())
	if err != nil {
		return eris.Wrap(err, "sqlite: append state entry")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append state")
}

// stateMatches compares the stored latest state against the state a writer
// validated its transition from.
func stateMatches(latest sql.NullString, expected *model.ClaimState) bool {
	if !latest.Valid {
		return expected == nil
	}
	return expected != nil && latest.String == string(*expected)
}

func (s *SQLiteStore) LatestStateEntry(ctx context.Context, claimID string) (*model.StateHistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, claim_id, org_id, current_state, previous_state, notes, created_at
		FROM state_history WHERE claim_id = ? ORDER BY seq DESC LIMIT 1`, claimID)

	entry, err := scanStateEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest state entry")
	}
	return entry, nil
}

func (s *SQLiteStore) StateHistory(ctx context.Context, claimID string) ([]model.StateHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, org_id, current_state, previous_state, notes, created_at
		FROM state_history WHERE claim_id = ? ORDER BY seq ASC`, claimID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: state history")
	}
	defer rows.Close()

	var entries []model.StateHistoryEntry
	for rows.Next() {
		entry, err := scanStateEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state entry")
		}
		entries = append(entries, *entry)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: state history")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStateEntry(row rowScanner) (*model.StateHistoryEntry, error) {
	var entry model.StateHistoryEntry
	var current string
	var prev, notes sql.NullString
	if err := row.Scan(&entry.ID, &entry.ClaimID, &entry.OrgID, &current, &prev, &notes, &entry.CreatedAt); err != nil {
		return nil, err
	}
	entry.CurrentState = model.ClaimState(current)
	if prev.Valid {
		p := model.ClaimState(prev.String)
		entry.PreviousState = &p
	}
	entry.Notes = notes.String
	return &entry, nil
}

func (s *SQLiteStore) ListRules(ctx context.Context) ([]model.RuleDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, trigger_expr, action, enabled FROM rules ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rules")
	}
	defer rows.Close()

	var rules []model.RuleDefinition
	for rows.Next() {
		var r model.RuleDefinition
		var desc sql.NullString
		var trigger, action string
		if err := rows.Scan(&r.ID, &r.Name, &desc, &trigger, &action, &r.Enabled); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rule")
		}
		r.Description = desc.String
		r.Trigger = json.RawMessage(trigger)
		if err := json.Unmarshal([]byte(action), &r.Action); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode action for rule %s", r.ID)
		}
		rules = append(rules, r)
	}
	return rules, eris.Wrap(rows.Err(), "sqlite: list rules")
}

func (s *SQLiteStore) UpsertRule(ctx context.Context, rule model.RuleDefinition) error {
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode rule action")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (id, name, description, trigger_expr, action, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			description = excluded.description, trigger_expr = excluded.trigger_expr,
			action = excluded.action, enabled = excluded.enabled`,
		rule.ID, rule.Name, rule.Description, string(rule.Trigger), string(action), rule.Enabled)
	return eris.Wrap(err, "sqlite: upsert rule")
}

func (s *SQLiteStore) PutEmbedding(ctx context.Context, claimID string, vector []float64) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode embedding")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claim_embeddings (claim_id, vector, indexed_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(claim_id) DO UPDATE SET vector = excluded.vector,
			indexed_at = excluded.indexed_at`,
		claimID, string(data))
	return eris.Wrap(err, "sqlite: put embedding")
}

func (s *SQLiteStore) AllEmbeddings(ctx context.Context) (map[string][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT claim_id, vector FROM claim_embeddings`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: all embeddings")
	}
	defer rows.Close()

	out := make(map[string][]float64)
	for rows.Next() {
		var claimID, data string
		if err := rows.Scan(&claimID, &data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan embedding")
		}
		var vec []float64
		if err := json.Unmarshal([]byte(data), &vec); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode embedding for %s", claimID)
		}
		out[claimID] = vec
	}
	return out, eris.Wrap(rows.Err(), "sqlite: all embeddings")
}

func (s *SQLiteStore) InsertStormEvents(ctx context.Context, events []model.StormEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin storm insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO storm_events (id, name, event_date, peril, magnitude, min_lon, min_lat, max_lon, max_lat, rings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare storm insert")
	}
	defer stmt.Close()

	var inserted int
	for _, ev := range events {
		rings, err := json.Marshal(ev.Rings)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: encode rings for %s", ev.ID)
		}
		var eventDate any
		if ev.EventDate != nil {
			eventDate = ev.EventDate.UTC()
		}
		res, err := stmt.ExecContext(ctx, ev.ID, ev.Name, eventDate, ev.Peril, ev.Magnitude,
			ev.MinLon, ev.MinLat, ev.MaxLon, ev.MaxLat, string(rings))
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: insert storm event %s", ev.ID)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit storm insert")
	}
	return inserted, nil
}

// StormEventsNear returns events whose bounding box contains the point.
// Callers still run the exact polygon test.
func (s *SQLiteStore) StormEventsNear(ctx context.Context, lon, lat float64) ([]model.StormEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, event_date, peril, magnitude, min_lon, min_lat, max_lon, max_lat, rings
		FROM storm_events
		WHERE min_lon <= ? AND max_lon >= ? AND min_lat <= ? AND max_lat >= ?`,
		lon, lon, lat, lat)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: storm events near")
	}
	defer rows.Close()

	var events []model.StormEvent
	for rows.Next() {
		var ev model.StormEvent
		var name, peril sql.NullString
		var eventDate sql.NullTime
		var rings string
		if err := rows.Scan(&ev.ID, &name, &eventDate, &peril, &ev.Magnitude,
			&ev.MinLon, &ev.MinLat, &ev.MaxLon, &ev.MaxLat, &rings); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan storm event")
		}
		ev.Name = name.String
		ev.Peril = peril.String
		if eventDate.Valid {
			t := eventDate.Time
			ev.EventDate = &t
		}
		if err := json.Unmarshal([]byte(rings), &ev.Rings); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode rings for %s", ev.ID)
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: storm events near")
}

func (s *SQLiteStore) AppendActionLog(ctx context.Context, entry model.ActionLogEntry) error {
	input, err := json.Marshal(entry.InputData)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode log input")
	}
	output, err := json.Marshal(entry.OutputData)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode log output")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO action_log (id, claim_id, agent_id, action_type, input_data, output_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ClaimID, entry.AgentID, entry.ActionType, string(input), string(output), entry.CreatedAt.UTC())
	return eris.Wrap(err, "sqlite: append action log")
}

func (s *SQLiteStore) ListActionLog(ctx context.Context, claimID string) ([]model.ActionLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, agent_id, action_type, input_data, output_data, created_at
		FROM action_log WHERE claim_id = ? ORDER BY created_at ASC, id ASC`, claimID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list action log")
	}
	defer rows.Close()

	var entries []model.ActionLogEntry
	for rows.Next() {
		var e model.ActionLogEntry
		var input, output sql.NullString
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.AgentID, &e.ActionType, &input, &output, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan action log")
		}
		if input.Valid && input.String != "" && input.String != "null" {
			if err := json.Unmarshal([]byte(input.String), &e.InputData); err != nil {
				return nil, eris.Wrap(err, "sqlite: decode log input")
			}
		}
		if output.Valid && output.String != "" && output.String != "null" {
			if err := json.Unmarshal([]byte(output.String), &e.OutputData); err != nil {
				return nil, eris.Wrap(err, "sqlite: decode log output")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list action log")
}
