package plan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// SimplifyContour reduces a raw contour to a room-candidate polygon
// using Douglas-Peucker with a perimeter-proportional tolerance:
// epsilon = EpsilonFactor * perimeter. The candidate is rejected (nil,
// false) when the simplified vertex count falls outside the configured
// band, which drops line fragments and jagged noise before scoring.
func SimplifyContour(points []Point, perimeter float64, cfg DetectionConfig) (Polygon, bool) {
	points = dedupeConsecutive(points)
	if len(points) < 3 {
		return nil, false
	}

	epsilon := cfg.EpsilonFactor * perimeter

	// Close the walk explicitly. Douglas-Peucker pins both endpoints,
	// so simplifying the open walk would leave a stray vertex next to
	// the start; with a closed ring the duplicate is stripped below.
	ls := make(orb.LineString, 0, len(points)+1)
	for _, p := range points {
		ls = append(ls, orb.Point{float64(p.X), float64(p.Y)})
	}
	ls = append(ls, ls[0])

	s := simplify.DouglasPeucker(epsilon).Simplify(ls.Clone())
	result, ok := s.(orb.LineString)
	if !ok {
		return nil, false
	}

	poly := make(Polygon, 0, len(result))
	for _, p := range result {
		poly = append(poly, Point{X: int(math.Round(p[0])), Y: int(math.Round(p[1]))})
	}
	poly = dedupeConsecutive(poly)

	// Simplification of a closed walk can leave the closing vertex
	// duplicated at the end.
	if len(poly) > 1 && poly[0] == poly[len(poly)-1] {
		poly = poly[:len(poly)-1]
	}

	if len(poly) < cfg.MinVertices || len(poly) > cfg.MaxVertices {
		return nil, false
	}

	return poly, true
}

// dedupeConsecutive removes immediately repeated vertices, preserving
// order. The polygon invariant forbids consecutive identical vertices.
func dedupeConsecutive(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
