package model

import "time"

// Claim is the unit of work progressing through the lifecycle.
// It is loaded from the claim store; this core never writes claims back.
type Claim struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"org_id"`
	Carrier        string    `json:"carrier,omitempty"`
	PolicyNumber   string    `json:"policy_number,omitempty"`
	PropertyAddr   string    `json:"property_address,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	RoofMaterial   string    `json:"roof_material,omitempty"`
	RoofSlope      float64   `json:"roof_slope,omitempty"`
	RoofAgeYears   int       `json:"roof_age_years,omitempty"`
	DamageType     string    `json:"damage_type,omitempty"`
	DamageSeverity string    `json:"damage_severity,omitempty"`
	DamageCause    string    `json:"damage_cause,omitempty"`
	EstimatedValue float64   `json:"estimated_value,omitempty"`
	DenialReason   string    `json:"denial_reason,omitempty"`
	Flags          []string  `json:"flags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ClaimContext is the flattened evaluation environment for rule triggers.
// Keys are dot-notation paths ("roof.slope", "storm.in_swath"); values are
// whatever the context builder put there. Missing keys resolve to nil and
// fail conditions closed.
type ClaimContext map[string]any
