package model

// ClaimState represents a claim's position in the lifecycle.
type ClaimState string

const (
	StateIntake          ClaimState = "INTAKE"
	StateInspected       ClaimState = "INSPECTED"
	StateEstimateDrafted ClaimState = "ESTIMATE_DRAFTED"
	StateSubmitted       ClaimState = "SUBMITTED"
	StateNegotiating     ClaimState = "NEGOTIATING"
	StateApproved        ClaimState = "APPROVED"
	StateInProduction    ClaimState = "IN_PRODUCTION"
	StateComplete        ClaimState = "COMPLETE"
	StatePaid            ClaimState = "PAID"
)

// AllStates lists every lifecycle state in pipeline order.
func AllStates() []ClaimState {
	return []ClaimState{
		StateIntake,
		StateInspected,
		StateEstimateDrafted,
		StateSubmitted,
		StateNegotiating,
		StateApproved,
		StateInProduction,
		StateComplete,
		StatePaid,
	}
}

// IsValid reports whether s is a recognized lifecycle state.
func (s ClaimState) IsValid() bool {
	switch s {
	case StateIntake, StateInspected, StateEstimateDrafted, StateSubmitted,
		StateNegotiating, StateApproved, StateInProduction, StateComplete, StatePaid:
		return true
	}
	return false
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s ClaimState) IsTerminal() bool {
	return s == StatePaid
}

func (s ClaimState) String() string {
	return string(s)
}
