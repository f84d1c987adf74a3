// Package storm loads storm swath footprints from shapefiles and answers
// point-in-swath queries for claim properties.
package storm

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
)

// Attribute names probed in swath DBFs, lowercased. Vendors disagree on
// naming so each logical field has several candidates.
var (
	nameFields      = []string{"name", "event_name", "storm_name", "title"}
	dateFields      = []string{"event_date", "date", "eventdate", "dtg"}
	perilFields     = []string{"peril", "hazard", "event_type", "type"}
	magnitudeFields = []string{"magnitude", "maxsize", "max_size", "wind_speed", "severity"}
)

var dateLayouts = []string{"2006-01-02", "20060102", "01/02/2006", time.RFC3339}

// LoadShapefile reads polygon records from a swath shapefile into storm
// events. Non-polygon shapes are skipped with a debug log.
func LoadShapefile(shpPath string) ([]model.StormEvent, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "storm: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	base := strings.TrimSuffix(filepath.Base(shpPath), filepath.Ext(shpPath))

	var events []model.StormEvent
	var skipped int
	seq := 0

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil || len(poly.Points) == 0 {
			skipped++
			continue
		}

		attr := func(candidates []string) string {
			for _, c := range candidates {
				if idx, found := fieldIdx[c]; found {
					v := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
					if v != "" {
						return v
					}
				}
			}
			return ""
		}

		seq++
		box := poly.BBox()
		ev := model.StormEvent{
			ID:     fmt.Sprintf("%s-%d", base, seq),
			Name:   attr(nameFields),
			Peril:  strings.ToLower(attr(perilFields)),
			MinLon: box.MinX,
			MinLat: box.MinY,
			MaxLon: box.MaxX,
			MaxLat: box.MaxY,
			Rings:  polygonRings(poly),
		}
		if raw := attr(dateFields); raw != "" {
			if ts, ok := parseDate(raw); ok {
				ev.EventDate = &ts
			}
		}
		if raw := attr(magnitudeFields); raw != "" {
			if mag, err := strconv.ParseFloat(raw, 64); err == nil {
				ev.Magnitude = mag
			}
		}

		events = append(events, ev)
	}

	if skipped > 0 {
		zap.L().Debug("storm: skipped non-polygon shapefile records",
			zap.String("file", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return events, nil
}

// polygonRings splits a shapefile polygon's parts into [lon, lat] rings.
func polygonRings(p *shp.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		ring := make([][]float64, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, []float64{p.Points[j].X, p.Points[j].Y})
		}
		if len(ring) >= 3 {
			rings = append(rings, ring)
		}
	}
	return rings
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ContainsPoint reports whether the coordinate falls inside the event
// footprint. Holes are handled by the even-odd rule: a point inside an
// odd number of rings is inside the polygon.
func ContainsPoint(ev model.StormEvent, lon, lat float64) bool {
	if lon < ev.MinLon || lon > ev.MaxLon || lat < ev.MinLat || lat > ev.MaxLat {
		return false
	}

	point := geom.Coord{lon, lat}
	inside := 0
	for _, ring := range ev.Rings {
		flat := make([]float64, 0, len(ring)*2)
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			flat = append(flat, pt[0], pt[1])
		}
		if len(flat) < 6 {
			continue
		}
		if xy.IsPointInRing(geom.XY, point, flat) {
			inside++
		}
	}
	return inside%2 == 1
}
