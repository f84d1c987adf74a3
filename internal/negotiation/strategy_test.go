package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claim-intel/internal/model"
)

func TestGetCarrierStrategy_KnownCarrier(t *testing.T) {
	s := GetCarrierStrategy("State Farm")
	assert.Contains(t, s.Summary, "State Farm")
	assert.NotEmpty(t, s.Tactics)
}

func TestGetCarrierStrategy_Normalization(t *testing.T) {
	tests := []struct {
		name    string
		carrier string
	}{
		{"lowercase", "state farm"},
		{"uppercase", "STATE FARM"},
		{"extra whitespace", "  State   Farm  "},
		{"mixed case", "sTaTe FaRm"},
	}
	want := GetCarrierStrategy("State Farm")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, GetCarrierStrategy(tt.carrier))
		})
	}
}

func TestGetCarrierStrategy_USAA(t *testing.T) {
	s := GetCarrierStrategy("usaa")
	assert.Contains(t, s.Summary, "USAA")
}

func TestGetCarrierStrategy_UnknownFallsBack(t *testing.T) {
	for _, carrier := range []string{"Acme Mutual", "", "   "} {
		s := GetCarrierStrategy(carrier)
		assert.Equal(t, defaultStrategy, s, "carrier %q", carrier)
		assert.NotEmpty(t, s.Tactics)
	}
}

func TestGetSuggestions_CarrierOnly(t *testing.T) {
	got := GetSuggestions(Input{Carrier: "State Farm"})
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Summary, "State Farm")
	assert.Contains(t, got[1].Summary, "best practices")
}

func TestGetSuggestions_WithDenialReason(t *testing.T) {
	got := GetSuggestions(Input{Carrier: "State Farm", DenialReason: "price dispute"})
	require.Len(t, got, 3)
	assert.Contains(t, got[2].Summary, "Pricing denial")
}

func TestGetSuggestions_WithDenialAndHighValue(t *testing.T) {
	got := GetSuggestions(Input{
		Carrier:       "State Farm",
		DenialReason:  "price dispute",
		EstimateValue: 60000,
	})
	require.Len(t, got, 4)
	assert.Contains(t, got[3].Summary, "High-value")
	assert.Equal(t, model.RiskHigh, got[3].RiskLevel)
}

func TestGetSuggestions_ValueAtThresholdExcluded(t *testing.T) {
	got := GetSuggestions(Input{Carrier: "Allstate", EstimateValue: 50000})
	assert.Len(t, got, 2)
}

func TestGetSuggestions_UnknownCarrierStillTwo(t *testing.T) {
	got := GetSuggestions(Input{Carrier: "Acme Mutual"})
	require.Len(t, got, 2)
	assert.Equal(t, defaultStrategy.Summary, got[0].Summary)
}

func TestDenialResponse_Buckets(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		want   string
	}{
		{"age", "roof age exceeds limits", "Age/wear"},
		{"wear", "normal wear and tear", "Age/wear"},
		{"price", "price dispute", "Pricing"},
		{"cost", "cost exceeds allowance", "Pricing"},
		{"code", "code upgrades not covered", "Code-upgrade"},
		{"upgrade", "upgrade items rejected", "Code-upgrade"},
		{"generic", "coverage lapsed", "Denial response"},
		{"case insensitive", "PRICE too high", "Pricing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := denialResponse(tt.reason)
			assert.Contains(t, got.Summary, tt.want)
			assert.NotEmpty(t, got.Steps)
		})
	}
}
