// Package claimctx flattens a claim into the dot-notation evaluation
// environment consumed by rule triggers.
package claimctx

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/internal/storm"
)

// StormSource returns candidate storm events whose bounding box covers
// the coordinate. The store does the bbox filter; the exact polygon test
// happens here.
type StormSource interface {
	StormEventsNear(ctx context.Context, lon, lat float64) ([]model.StormEvent, error)
}

// Builder assembles claim contexts, optionally enriched with storm-swath
// membership when a storm source is configured.
type Builder struct {
	storms StormSource
}

func NewBuilder(storms StormSource) *Builder {
	return &Builder{storms: storms}
}

// Build flattens the claim and, when coordinates and a storm source are
// available, adds storm.* fields. Storm lookup failures degrade to an
// un-enriched context; rule evaluation must not depend on the swath data
// being present.
func (b *Builder) Build(ctx context.Context, claim model.Claim, state *model.ClaimState) model.ClaimContext {
	cc := Flatten(claim, state)

	if b.storms == nil || claim.Longitude == nil || claim.Latitude == nil {
		return cc
	}

	events, err := b.storms.StormEventsNear(ctx, *claim.Longitude, *claim.Latitude)
	if err != nil {
		zap.L().Warn("claimctx: storm lookup failed, continuing without swath data",
			zap.String("claim_id", claim.ID),
			zap.Error(err),
		)
		return cc
	}

	for _, ev := range events {
		if !storm.ContainsPoint(ev, *claim.Longitude, *claim.Latitude) {
			continue
		}
		cc["storm.in_swath"] = true
		cc["storm.event_id"] = ev.ID
		if ev.Peril != "" {
			cc["storm.peril"] = ev.Peril
		}
		if ev.Magnitude != 0 {
			cc["storm.magnitude"] = ev.Magnitude
		}
		if ev.EventDate != nil {
			cc["storm.event_date"] = ev.EventDate.Format(time.RFC3339)
		}
		break
	}

	return cc
}

// Flatten maps claim fields to their trigger paths. Zero-valued optional
// fields are still written so != conditions against "" behave predictably.
func Flatten(claim model.Claim, state *model.ClaimState) model.ClaimContext {
	cc := model.ClaimContext{
		"claim.id":              claim.ID,
		"claim.denial_reason":   claim.DenialReason,
		"claim.has_coordinates": claim.Longitude != nil && claim.Latitude != nil,
		"carrier":               claim.Carrier,
		"roof.material":         claim.RoofMaterial,
		"roof.slope":            claim.RoofSlope,
		"roof.age_years":        float64(claim.RoofAgeYears),
		"damage.type":           claim.DamageType,
		"damage.severity":       claim.DamageSeverity,
		"damage.cause":          claim.DamageCause,
		"estimate.value":        claim.EstimatedValue,
		"storm.in_swath":        false,
	}

	if state != nil {
		cc["claim.state"] = string(*state)
	}

	if len(claim.Flags) > 0 {
		flags := make([]any, 0, len(claim.Flags))
		for _, f := range claim.Flags {
			flags = append(flags, f)
		}
		cc["flags"] = flags
	}

	if claim.Longitude != nil {
		cc["claim.longitude"] = *claim.Longitude
	}
	if claim.Latitude != nil {
		cc["claim.latitude"] = *claim.Latitude
	}

	return cc
}
