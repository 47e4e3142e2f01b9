package land

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/litescript/ls-globe/internal/geo"
)

// ParseGeoJSON extracts the exterior ring of every Polygon and MultiPolygon
// member in a FeatureCollection, Feature, GeometryCollection or bare
// geometry. Holes and other geometry types are ignored. Each ring is
// decimated to about targetPoints vertices (no decimation when
// targetPoints <= 0); rings left with fewer than 3 vertices are dropped.
func ParseGeoJSON(data []byte, targetPoints int) ([]geo.Ring, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var rings []geo.Ring
	for _, g := range geoms {
		rings = appendRings(rings, g, targetPoints)
	}
	if len(rings) == 0 {
		return nil, ErrNoRings
	}
	return rings, nil
}

func appendRings(rings []geo.Ring, g orb.Geometry, targetPoints int) []geo.Ring {
	switch g := g.(type) {
	case orb.Polygon:
		rings = appendExterior(rings, g, targetPoints)
	case orb.MultiPolygon:
		for _, poly := range g {
			rings = appendExterior(rings, poly, targetPoints)
		}
	case orb.Collection:
		for _, child := range g {
			rings = appendRings(rings, child, targetPoints)
		}
	}
	return rings
}

func appendExterior(rings []geo.Ring, poly orb.Polygon, targetPoints int) []geo.Ring {
	if len(poly) == 0 {
		return rings
	}
	ext := poly[0]
	ring := make(geo.Ring, 0, len(ext))
	for _, p := range ext {
		ring = append(ring, geo.Point{Lon: p.Lon(), Lat: p.Lat()})
	}
	// Rings are implicitly closed; drop GeoJSON's repeated first vertex.
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	ring = Decimate(ring, targetPoints)
	if len(ring) < 3 {
		return rings
	}
	return append(rings, ring)
}

// Decimate keeps every step-th vertex, step = len/target rounded down, so
// the result has roughly target vertices. Short rings are returned as is.
func Decimate(ring geo.Ring, target int) geo.Ring {
	if target <= 0 || len(ring) <= target {
		return ring
	}
	step := len(ring) / target
	if step < 1 {
		step = 1
	}
	out := make(geo.Ring, 0, len(ring)/step+1)
	for i := 0; i < len(ring); i += step {
		out = append(out, ring[i])
	}
	return out
}
