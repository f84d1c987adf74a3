package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimState_IsValid(t *testing.T) {
	for _, s := range AllStates() {
		assert.True(t, s.IsValid(), "state %s should be valid", s)
	}
	assert.False(t, ClaimState("DRAFT").IsValid())
	assert.False(t, ClaimState("").IsValid())
}

func TestClaimState_IsTerminal(t *testing.T) {
	assert.True(t, StatePaid.IsTerminal())
	assert.False(t, StateComplete.IsTerminal())
	assert.False(t, StateIntake.IsTerminal())
	assert.False(t, StateNegotiating.IsTerminal())
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}
