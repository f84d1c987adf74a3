package claimctx

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claim-intel/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func statePtr(s model.ClaimState) *model.ClaimState { return &s }

type fakeStormSource struct {
	events []model.StormEvent
	err    error
	calls  int
}

func (f *fakeStormSource) StormEventsNear(_ context.Context, _, _ float64) ([]model.StormEvent, error) {
	f.calls++
	return f.events, f.err
}

func testClaim() model.Claim {
	return model.Claim{
		ID:             "clm-1",
		OrgID:          "org-1",
		Carrier:        "State Farm",
		RoofMaterial:   "asphalt_shingle",
		RoofSlope:      6,
		RoofAgeYears:   12,
		DamageType:     "roof",
		DamageSeverity: "moderate",
		DamageCause:    "hail",
		EstimatedValue: 24000,
		Flags:          []string{"code_upgrade"},
	}
}

func TestFlatten(t *testing.T) {
	claim := testClaim()
	claim.DenialReason = "price dispute"

	cc := Flatten(claim, statePtr(model.StateSubmitted))

	assert.Equal(t, "clm-1", cc["claim.id"])
	assert.Equal(t, "price dispute", cc["claim.denial_reason"])
	assert.Equal(t, false, cc["claim.has_coordinates"])
	assert.Equal(t, "State Farm", cc["carrier"])
	assert.Equal(t, 6.0, cc["roof.slope"])
	assert.Equal(t, 12.0, cc["roof.age_years"])
	assert.Equal(t, "hail", cc["damage.cause"])
	assert.Equal(t, 24000.0, cc["estimate.value"])
	assert.Equal(t, "SUBMITTED", cc["claim.state"])
	assert.Equal(t, []any{"code_upgrade"}, cc["flags"])
	assert.Equal(t, false, cc["storm.in_swath"])
}

func TestFlatten_NilState(t *testing.T) {
	cc := Flatten(testClaim(), nil)
	_, ok := cc["claim.state"]
	assert.False(t, ok)
}

func TestFlatten_Coordinates(t *testing.T) {
	claim := testClaim()
	claim.Longitude = floatPtr(-97.5)
	claim.Latitude = floatPtr(31.2)

	cc := Flatten(claim, nil)
	assert.Equal(t, true, cc["claim.has_coordinates"])
	assert.Equal(t, -97.5, cc["claim.longitude"])
	assert.Equal(t, 31.2, cc["claim.latitude"])
}

func TestBuild_NoStormSource(t *testing.T) {
	b := NewBuilder(nil)
	claim := testClaim()
	claim.Longitude = floatPtr(-97.5)
	claim.Latitude = floatPtr(31.2)

	cc := b.Build(context.Background(), claim, nil)
	assert.Equal(t, false, cc["storm.in_swath"])
}

func TestBuild_NoCoordinatesSkipsLookup(t *testing.T) {
	src := &fakeStormSource{}
	b := NewBuilder(src)

	cc := b.Build(context.Background(), testClaim(), nil)
	assert.Equal(t, false, cc["storm.in_swath"])
	assert.Zero(t, src.calls)
}

func TestBuild_StormEnrichment(t *testing.T) {
	eventDate := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	src := &fakeStormSource{events: []model.StormEvent{
		{
			// Bbox matches but the point sits outside the polygon.
			ID: "miss", MinLon: -98, MinLat: 30, MaxLon: -96, MaxLat: 32,
			Rings: [][][]float64{{{-98, 30}, {-97.8, 30}, {-97.8, 30.2}, {-98, 30.2}, {-98, 30}}},
		},
		{
			ID: "hit", Peril: "hail", Magnitude: 1.75, EventDate: &eventDate,
			MinLon: -98, MinLat: 30, MaxLon: -96, MaxLat: 32,
			Rings: [][][]float64{{{-98, 30}, {-96, 30}, {-96, 32}, {-98, 32}, {-98, 30}}},
		},
	}}
	b := NewBuilder(src)

	claim := testClaim()
	claim.Longitude = floatPtr(-97.5)
	claim.Latitude = floatPtr(31.2)

	cc := b.Build(context.Background(), claim, nil)
	require.Equal(t, true, cc["storm.in_swath"])
	assert.Equal(t, "hit", cc["storm.event_id"])
	assert.Equal(t, "hail", cc["storm.peril"])
	assert.Equal(t, 1.75, cc["storm.magnitude"])
	assert.Equal(t, "2024-05-14T00:00:00Z", cc["storm.event_date"])
}

func TestBuild_StormLookupFailureDegrades(t *testing.T) {
	src := &fakeStormSource{err: eris.New("store offline")}
	b := NewBuilder(src)

	claim := testClaim()
	claim.Longitude = floatPtr(-97.5)
	claim.Latitude = floatPtr(31.2)

	cc := b.Build(context.Background(), claim, nil)
	assert.Equal(t, false, cc["storm.in_swath"])
	assert.Equal(t, "hail", cc["damage.cause"])
}
