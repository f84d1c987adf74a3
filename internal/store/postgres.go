package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/claim-intel/internal/db"
	"github.com/sells-group/claim-intel/internal/model"
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

// preparedStatements lists queries to prepare on each new connection for the
// hot orchestration path.
var preparedStatements = map[string]string{
	"get_claim":      `SELECT payload FROM claims WHERE id = $1`,
	"latest_state":   `SELECT id, claim_id, org_id, current_state, previous_state, notes, created_at FROM state_history WHERE claim_id = $1 ORDER BY seq DESC LIMIT 1`,
	"list_rules":     `SELECT id, name, description, trigger_expr, action, enabled FROM rules ORDER BY id`,
	"append_log":     `INSERT INTO action_log (id, claim_id, agent_id, action_type, input_data, output_data, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"all_embeddings": `SELECT claim_id, vector FROM claim_embeddings`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

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

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk storm-swath loading).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS claims (
	id         TEXT PRIMARY KEY,
	org_id     TEXT NOT NULL,
	carrier    TEXT,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS state_history (
	seq            BIGSERIAL PRIMARY KEY,
	id             TEXT NOT NULL UNIQUE,
	claim_id       TEXT NOT NULL,
	org_id         TEXT NOT NULL,
	current_state  TEXT NOT NULL,
	previous_state TEXT,
	notes          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rules (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	description  TEXT,
	trigger_expr JSONB NOT NULL,
	action       JSONB NOT NULL,
	enabled      BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS claim_embeddings (
	claim_id   TEXT PRIMARY KEY,
	vector     JSONB NOT NULL,
	indexed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS storm_events (
	id         TEXT PRIMARY KEY,
	name       TEXT,
	event_date TIMESTAMPTZ,
	peril      TEXT,
	magnitude  DOUBLE PRECISION,
	min_lon    DOUBLE PRECISION NOT NULL,
	min_lat    DOUBLE PRECISION NOT NULL,
	max_lon    DOUBLE PRECISION NOT NULL,
	max_lat    DOUBLE PRECISION NOT NULL,
	rings      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS action_log (
	id          TEXT PRIMARY KEY,
	claim_id    TEXT NOT NULL,
	agent_id    TEXT NOT NULL,
	action_type TEXT NOT NULL,
	input_data  JSONB,
	output_data JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_state_history_claim ON state_history(claim_id, seq);
CREATE INDEX IF NOT EXISTS idx_claims_org ON claims(org_id);
CREATE INDEX IF NOT EXISTS idx_action_log_claim ON action_log(claim_id);
CREATE INDEX IF NOT EXISTS idx_storm_events_bbox ON storm_events(min_lon, max_lon, min_lat, max_lat);
`

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

// GetClaim returns the claim or ErrClaimNotFound.
func (s *PostgresStore) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM claims WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get claim")
	}

	var claim model.Claim
	if err := json.Unmarshal(payload, &claim); err != nil {
		return nil, eris.Wrap(err, "postgres: decode claim")
	}
	return &claim, nil
}

func (s *PostgresStore) UpsertClaim(ctx context.Context, claim model.Claim) error {
	payload, err := json.Marshal(claim)
	if err != nil {
		return eris.Wrap(err, "postgres: encode claim")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO claims (id, org_id, carrier, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET org_id = EXCLUDED.org_id,
			carrier = EXCLUDED.carrier, payload = EXCLUDED.payload`,
		claim.ID, claim.OrgID, claim.Carrier, payload, claim.CreatedAt.UTC())
	return eris.Wrap(err, "postgres: upsert claim")
}

func (s *PostgresStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]model.Claim, error) {
	query := `SELECT payload FROM claims WHERE ($1 = '' OR org_id = $1) AND ($2 = '' OR carrier = $2) ORDER BY created_at DESC`
	args := []any{filter.OrgID, filter.Carrier}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list claims")
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim")
		}
		var c model.Claim
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: decode claim")
		}
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "postgres: list claims")
}

// AppendStateEntry re-checks the latest state inside a transaction before
// appending. A mismatch with expectedPrev fails with ErrStateConflict.
func (s *PostgresStore) AppendStateEntry(ctx context.Context, entry model.StateHistoryEntry, expectedPrev *model.ClaimState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin append state")
	}
	defer tx.Rollback(ctx)

	var latest *string
	err = tx.QueryRow(ctx, `
		SELECT current_state FROM state_history
		WHERE claim_id = $1 ORDER BY seq DESC LIMIT 1 FOR UPDATE`, entry.ClaimID).Scan(&latest)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrap(err, "postgres: read latest state")
	}

	switch {
	case latest == nil && expectedPrev != nil,
		latest != nil && (expectedPrev == nil || *latest != string(*expectedPrev)):
		return ErrStateConflict
	}

	var prev *string
	if entry.PreviousState != nil {
		p := string(*entry.PreviousState)
		prev = &p
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO state_history (id, claim_id, org_id, current_state, previous_state, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ClaimID, entry.OrgID, string(entry.CurrentState), prev, entry.Notes, entry.CreatedAt.UTC())
	if err != nil {
		return eris.Wrap(err, "postgres: append state entry")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit append state")
}

func (s *PostgresStore) LatestStateEntry(ctx context.Context, claimID string) (*model.StateHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, claim_id, org_id, current_state, previous_state, notes, created_at
		FROM state_history WHERE claim_id = $1 ORDER BY seq DESC LIMIT 1`, claimID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest state entry")
	}
	defer rows.Close()

	entries, err := collectStateEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *PostgresStore) StateHistory(ctx context.Context, claimID string) ([]model.StateHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, claim_id, org_id, current_state, previous_state, notes, created_at
		FROM state_history WHERE claim_id = $1 ORDER BY seq ASC`, claimID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: state history")
	}
	defer rows.Close()

	return collectStateEntries(rows)
}

func collectStateEntries(rows pgx.Rows) ([]model.StateHistoryEntry, error) {
	var entries []model.StateHistoryEntry
	for rows.Next() {
		var entry model.StateHistoryEntry
		var current string
		var prev, notes *string
		if err := rows.Scan(&entry.ID, &entry.ClaimID, &entry.OrgID, &current, &prev, &notes, &entry.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan state entry")
		}
		entry.CurrentState = model.ClaimState(current)
		if prev != nil {
			p := model.ClaimState(*prev)
			entry.PreviousState = &p
		}
		if notes != nil {
			entry.Notes = *notes
		}
		entries = append(entries, entry)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: collect state entries")
}

func (s *PostgresStore) ListRules(ctx context.Context) ([]model.RuleDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, trigger_expr, action, enabled FROM rules ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rules")
	}
	defer rows.Close()

	var rules []model.RuleDefinition
	for rows.Next() {
		var r model.RuleDefinition
		var desc *string
		var trigger, action []byte
		if err := rows.Scan(&r.ID, &r.Name, &desc, &trigger, &action, &r.Enabled); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule")
		}
		if desc != nil {
			r.Description = *desc
		}
		r.Trigger = json.RawMessage(trigger)
		if err := json.Unmarshal(action, &r.Action); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode action for rule %s", r.ID)
		}
		rules = append(rules, r)
	}
	return rules, eris.Wrap(rows.Err(), "postgres: list rules")
}

func (s *PostgresStore) UpsertRule(ctx context.Context, rule model.RuleDefinition) error {
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return eris.Wrap(err, "postgres: encode rule action")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO rules (id, name, description, trigger_expr, action, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
			description = EXCLUDED.description, trigger_expr = EXCLUDED.trigger_expr,
			action = EXCLUDED.action, enabled = EXCLUDED.enabled`,
		rule.ID, rule.Name, rule.Description, []byte(rule.Trigger), action, rule.Enabled)
	return eris.Wrap(err, "postgres: upsert rule")
}

func (s *PostgresStore) PutEmbedding(ctx context.Context, claimID string, vector []float64) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return eris.Wrap(err, "postgres: encode embedding")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO claim_embeddings (claim_id, vector, indexed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (claim_id) DO UPDATE SET vector = EXCLUDED.vector,
			indexed_at = EXCLUDED.indexed_at`,
		claimID, data)
	return eris.Wrap(err, "postgres: put embedding")
}

func (s *PostgresStore) AllEmbeddings(ctx context.Context) (map[string][]float64, error) {
	rows, err := s.pool.Query(ctx, `SELECT claim_id, vector FROM claim_embeddings`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: all embeddings")
	}
	defer rows.Close()

	out := make(map[string][]float64)
	for rows.Next() {
		var claimID string
		var data []byte
		if err := rows.Scan(&claimID, &data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan embedding")
		}
		var vec []float64
		if err := json.Unmarshal(data, &vec); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode embedding for %s", claimID)
		}
		out[claimID] = vec
	}
	return out, eris.Wrap(rows.Err(), "postgres: all embeddings")
}

// InsertStormEvents bulk-loads swath polygons. COPY cannot express ON
// CONFLICT, so rows land in a temp staging table first and existing ids are
// skipped on the final insert, matching the sqlite driver on reloads.
func (s *PostgresStore) InsertStormEvents(ctx context.Context, events []model.StormEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	columns := []string{"id", "name", "event_date", "peril", "magnitude", "min_lon", "min_lat", "max_lon", "max_lat", "rings"}
	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		rings, err := json.Marshal(ev.Rings)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode rings for %s", ev.ID)
		}
		var eventDate any
		if ev.EventDate != nil {
			eventDate = ev.EventDate.UTC()
		}
		rows = append(rows, []any{ev.ID, ev.Name, eventDate, ev.Peril, ev.Magnitude,
			ev.MinLon, ev.MinLat, ev.MaxLon, ev.MaxLat, rings})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin storm insert")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `CREATE TEMP TABLE storm_events_load (LIKE storm_events INCLUDING DEFAULTS) ON COMMIT DROP`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: create storm staging table")
	}

	if _, err := db.CopyFrom(ctx, tx, "storm_events_load", columns, rows); err != nil {
		return 0, eris.Wrap(err, "postgres: stage storm events")
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO storm_events (id, name, event_date, peril, magnitude, min_lon, min_lat, max_lon, max_lat, rings)
		SELECT id, name, event_date, peril, magnitude, min_lon, min_lat, max_lon, max_lat, rings
		FROM storm_events_load
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert storm events")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit storm insert")
	}
	return int(tag.RowsAffected()), nil
}

// StormEventsNear returns events whose bounding box contains the point.
func (s *PostgresStore) StormEventsNear(ctx context.Context, lon, lat float64) ([]model.StormEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, event_date, peril, magnitude, min_lon, min_lat, max_lon, max_lat, rings
		FROM storm_events
		WHERE min_lon <= $1 AND max_lon >= $1 AND min_lat <= $2 AND max_lat >= $2`,
		lon, lat)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: storm events near")
	}
	defer rows.Close()

	var events []model.StormEvent
	for rows.Next() {
		var ev model.StormEvent
		var name, peril *string
		var eventDate *time.Time
		var rings []byte
		if err := rows.Scan(&ev.ID, &name, &eventDate, &peril, &ev.Magnitude,
			&ev.MinLon, &ev.MinLat, &ev.MaxLon, &ev.MaxLat, &rings); err != nil {
			return nil, eris.Wrap(err, "postgres: scan storm event")
		}
		if name != nil {
			ev.Name = *name
		}
		if peril != nil {
			ev.Peril = *peril
		}
		ev.EventDate = eventDate
		if err := json.Unmarshal(rings, &ev.Rings); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode rings for %s", ev.ID)
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: storm events near")
}

func (s *PostgresStore) AppendActionLog(ctx context.Context, entry model.ActionLogEntry) error {
	input, err := json.Marshal(entry.InputData)
	if err != nil {
		return eris.Wrap(err, "postgres: encode log input")
	}
	output, err := json.Marshal(entry.OutputData)
	if err != nil {
		return eris.Wrap(err, "postgres: encode log output")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO action_log (id, claim_id, agent_id, action_type, input_data, output_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ClaimID, entry.AgentID, entry.ActionType, input, output, entry.CreatedAt.UTC())
	return eris.Wrap(err, "postgres: append action log")
}

func (s *PostgresStore) ListActionLog(ctx context.Context, claimID string) ([]model.ActionLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, claim_id, agent_id, action_type, input_data, output_data, created_at
		FROM action_log WHERE claim_id = $1 ORDER BY created_at ASC, id ASC`, claimID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list action log")
	}
	defer rows.Close()

	var entries []model.ActionLogEntry
	for rows.Next() {
		var e model.ActionLogEntry
		var input, output []byte
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.AgentID, &e.ActionType, &input, &output, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan action log")
		}
		if len(input) > 0 && string(input) != "null" {
			if err := json.Unmarshal(input, &e.InputData); err != nil {
				return nil, eris.Wrap(err, "postgres: decode log input")
			}
		}
		if len(output) > 0 && string(output) != "null" {
			if err := json.Unmarshal(output, &e.OutputData); err != nil {
				return nil, eris.Wrap(err, "postgres: decode log output")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list action log")
}
