package model

import "time"

// StormEvent is a storm footprint polygon loaded from hail/wind swath
// shapefiles. Rings holds the exterior ring followed by any holes, each a
// series of [lon, lat] pairs. The bounding box is denormalized for cheap
// candidate filtering before the exact point-in-polygon test.
type StormEvent struct {
	ID        string        `json:"id"`
	Name      string        `json:"name,omitempty"`
	EventDate *time.Time    `json:"event_date,omitempty"`
	Peril     string        `json:"peril,omitempty"`
	Magnitude float64       `json:"magnitude,omitempty"`
	MinLon    float64       `json:"min_lon"`
	MinLat    float64       `json:"min_lat"`
	MaxLon    float64       `json:"max_lon"`
	MaxLat    float64       `json:"max_lat"`
	Rings     [][][]float64 `json:"rings"`
}
