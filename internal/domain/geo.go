package domain

import (
	"encoding/json"
	"errors"
	"math"
)

// ErrOpenRing marks a polygon ring whose first and last vertices differ.
// Callers must close their rings; an open ring is a programming error, not a
// data condition.
var ErrOpenRing = errors.New("polygon ring is not closed")

// LonLat is a WGS-84 coordinate pair in GeoJSON axis order.
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// coordEpsilon absorbs float noise in on-boundary checks. Warning-area
// coordinates carry at most 6 decimal places, so 1e-9 degrees is far below
// data precision.
const coordEpsilon = 1e-9

// ValidateRing checks that a ring has at least four vertices and is closed.
func ValidateRing(ring []LonLat) error {
	if len(ring) < 4 {
		return errors.New("polygon ring needs at least 4 vertices")
	}
	first, last := ring[0], ring[len(ring)-1]
	if first.Lon != last.Lon || first.Lat != last.Lat {
		return ErrOpenRing
	}
	return nil
}

// PointInRing reports whether p lies inside or on the boundary of a closed
// ring, using planar even-odd ray casting on the raw lon/lat values.
// Planar rather than geodesic semantics are intentional: warning areas are
// small enough that great-circle effects are below data precision.
func PointInRing(p LonLat, ring []LonLat) bool {
	return pointInRings(p, [][]LonLat{ring})
}

// pointInRings applies even-odd ray casting across all rings of a polygon,
// which handles holes without distinguishing outer from inner rings. Points
// on any ring's boundary count as inside.
func pointInRings(p LonLat, rings [][]LonLat) bool {
	inside := false
	for _, ring := range rings {
		for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
			a, b := ring[j], ring[i]
			if onSegment(p, a, b) {
				return true
			}
			if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
				x := a.Lon + (p.Lat-a.Lat)*(b.Lon-a.Lon)/(b.Lat-a.Lat)
				if p.Lon < x {
					inside = !inside
				}
			}
		}
	}
	return inside
}

// onSegment reports whether p lies on the segment a-b.
func onSegment(p, a, b LonLat) bool {
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	if math.Abs(cross) > coordEpsilon {
		return false
	}
	return p.Lon >= math.Min(a.Lon, b.Lon)-coordEpsilon &&
		p.Lon <= math.Max(a.Lon, b.Lon)+coordEpsilon &&
		p.Lat >= math.Min(a.Lat, b.Lat)-coordEpsilon &&
		p.Lat <= math.Max(a.Lat, b.Lat)+coordEpsilon
}

// geoJSONGeometry is the minimal geometry envelope needed for containment.
type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// GeometryContains reports whether a GeoJSON Polygon or MultiPolygon
// contains the point, boundary inclusive. Point, LineString, and malformed
// geometries never contain anything.
func GeometryContains(geometry json.RawMessage, p LonLat) bool {
	if len(geometry) == 0 {
		return false
	}
	var geom geoJSONGeometry
	if err := json.Unmarshal(geometry, &geom); err != nil {
		return false
	}

	switch geom.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &coords); err != nil {
			return false
		}
		return pointInRings(p, toRings(coords))
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &coords); err != nil {
			return false
		}
		for _, polygon := range coords {
			if pointInRings(p, toRings(polygon)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func toRings(coords [][][]float64) [][]LonLat {
	rings := make([][]LonLat, 0, len(coords))
	for _, raw := range coords {
		ring := make([]LonLat, 0, len(raw))
		for _, pair := range raw {
			if len(pair) < 2 {
				continue
			}
			ring = append(ring, LonLat{Lon: pair[0], Lat: pair[1]})
		}
		rings = append(rings, ring)
	}
	return rings
}
