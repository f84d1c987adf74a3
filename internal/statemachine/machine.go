// Package statemachine enforces the claim lifecycle transition graph over
// the append-only state history.
package statemachine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/internal/store"
)

// ErrInvalidTransition means the requested transition is not an edge in the
// lifecycle graph. Use eris.Is to classify; the message names the attempted
// and allowed states.
var ErrInvalidTransition = eris.New("statemachine: invalid transition")

// ErrStateConflict re-exports the store sentinel: a concurrent writer won
// the append race and the caller should re-read and retry.
var ErrStateConflict = store.ErrStateConflict

// transitions is the static lifecycle graph. Directed, no self-loops;
// PAID is terminal.
var transitions = map[model.ClaimState][]model.ClaimState{
	model.StateIntake:          {model.StateInspected},
	model.StateInspected:       {model.StateEstimateDrafted},
	model.StateEstimateDrafted: {model.StateSubmitted},
	model.StateSubmitted:       {model.StateNegotiating, model.StateApproved},
	model.StateNegotiating:     {model.StateApproved, model.StateSubmitted},
	model.StateApproved:        {model.StateInProduction},
	model.StateInProduction:    {model.StateComplete},
	model.StateComplete:        {model.StatePaid},
	model.StatePaid:            {},
}

// HistoryStore is the slice of the store the machine depends on.
type HistoryStore interface {
	AppendStateEntry(ctx context.Context, entry model.StateHistoryEntry, expectedPrev *model.ClaimState) error
	LatestStateEntry(ctx context.Context, claimID string) (*model.StateHistoryEntry, error)
	StateHistory(ctx context.Context, claimID string) ([]model.StateHistoryEntry, error)
}

// Machine reads and advances claim lifecycle state.
type Machine struct {
	history HistoryStore
}

// New creates a Machine over the given history store.
func New(history HistoryStore) *Machine {
	return &Machine{history: history}
}

// AllowedNextStates returns the legal next states for the given current
// state. A nil current state (no history yet) allows only INTAKE; PAID
// allows nothing.
func AllowedNextStates(current *model.ClaimState) []model.ClaimState {
	if current == nil {
		return []model.ClaimState{model.StateIntake}
	}
	next, ok := transitions[*current]
	if !ok {
		return nil
	}
	out := make([]model.ClaimState, len(next))
	copy(out, next)
	return out
}

// IsValidTransition reports whether from → to is an edge in the graph.
func IsValidTransition(from *model.ClaimState, to model.ClaimState) bool {
	for _, s := range AllowedNextStates(from) {
		if s == to {
			return true
		}
	}
	return false
}

// CurrentState returns the claim's current state, or nil if no history
// entry exists yet.
func (m *Machine) CurrentState(ctx context.Context, claimID string) (*model.ClaimState, error) {
	entry, err := m.history.LatestStateEntry(ctx, claimID)
	if err != nil {
		return nil, eris.Wrap(err, "statemachine: read current state")
	}
	if entry == nil {
		return nil, nil
	}
	state := entry.CurrentState
	return &state, nil
}

// History returns the claim's state entries in creation order.
func (m *Machine) History(ctx context.Context, claimID string) ([]model.StateHistoryEntry, error) {
	entries, err := m.history.StateHistory(ctx, claimID)
	if err != nil {
		return nil, eris.Wrap(err, "statemachine: read history")
	}
	return entries, nil
}

// Transition re-reads the claim's current state, validates the requested
// transition, and appends a new history entry. The append re-validates
// against the latest row, so a losing concurrent writer gets
// ErrStateConflict rather than a silently forked history.
func (m *Machine) Transition(ctx context.Context, claimID, orgID string, newState model.ClaimState, notes string) (*model.StateHistoryEntry, error) {
	if !newState.IsValid() {
		return nil, eris.Wrapf(ErrInvalidTransition, "unknown state %q", newState)
	}

	current, err := m.CurrentState(ctx, claimID)
	if err != nil {
		return nil, err
	}

	if !IsValidTransition(current, newState) {
		return nil, eris.Wrapf(ErrInvalidTransition, "%s -> %s (allowed: %s)",
			describeState(current), newState, formatStates(AllowedNextStates(current)))
	}

	entry := model.StateHistoryEntry{
		ID:            uuid.NewString(),
		ClaimID:       claimID,
		OrgID:         orgID,
		CurrentState:  newState,
		PreviousState: current,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
	}

	if err := m.history.AppendStateEntry(ctx, entry, current); err != nil {
		return nil, eris.Wrap(err, "statemachine: append transition")
	}

	zap.L().Info("statemachine: transition",
		zap.String("claim_id", claimID),
		zap.String("from", describeState(current)),
		zap.String("to", string(newState)),
	)

	return &entry, nil
}

func describeState(s *model.ClaimState) string {
	if s == nil {
		return "(none)"
	}
	return string(*s)
}

func formatStates(states []model.ClaimState) string {
	if len(states) == 0 {
		return "(none)"
	}
	out := ""
	for i, s := range states {
		if i > 0 {
			out += ", "
		}
		out += string(s)
	}
	return out
}
