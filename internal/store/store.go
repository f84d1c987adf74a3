package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claim-intel/internal/model"
)

// Sentinel errors shared by both drivers.
var (
	// ErrClaimNotFound means the requested claim does not exist.
	ErrClaimNotFound = eris.New("store: claim not found")

	// ErrStateConflict means a concurrent writer appended a state entry
	// between this writer's read and its append. Callers should re-read
	// and retry.
	ErrStateConflict = eris.New("store: state history conflict")
)

// ClaimFilter narrows ListClaims.
type ClaimFilter struct {
	OrgID   string `json:"org_id,omitempty"`
	Carrier string `json:"carrier,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the intelligence core.
type Store interface {
	// Claims
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	UpsertClaim(ctx context.Context, claim model.Claim) error
	ListClaims(ctx context.Context, filter ClaimFilter) ([]model.Claim, error)

	// State history (append-only). AppendStateEntry enforces optimistic
	// concurrency: expectedPrev is the state the caller validated against
	// (nil for a first entry); if the latest row no longer matches, the
	// append fails with ErrStateConflict.
	AppendStateEntry(ctx context.Context, entry model.StateHistoryEntry, expectedPrev *model.ClaimState) error
	LatestStateEntry(ctx context.Context, claimID string) (*model.StateHistoryEntry, error)
	StateHistory(ctx context.Context, claimID string) ([]model.StateHistoryEntry, error)

	// Rules
	ListRules(ctx context.Context) ([]model.RuleDefinition, error)
	UpsertRule(ctx context.Context, rule model.RuleDefinition) error

	// Claim embeddings. AllEmbeddings legitimately returns an empty map
	// when no vectors have been indexed; similarity search degrades.
	PutEmbedding(ctx context.Context, claimID string, vector []float64) error
	AllEmbeddings(ctx context.Context) (map[string][]float64, error)

	// Storm events
	InsertStormEvents(ctx context.Context, events []model.StormEvent) (int, error)
	StormEventsNear(ctx context.Context, lon, lat float64) ([]model.StormEvent, error)

	// Action log (best-effort at call sites)
	AppendActionLog(ctx context.Context, entry model.ActionLogEntry) error
	ListActionLog(ctx context.Context, claimID string) ([]model.ActionLogEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
