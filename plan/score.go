package plan

import "math"

// Confidence weights. Fixed and documented rather than configurable so
// the heuristic cannot drift between deployments. The score is
// advisory: a ranking signal for manual review, never an authoritative
// room/non-room classification.
const (
	weightRectangularity = 0.30
	weightVertex         = 0.25
	weightSize           = 0.25
	weightAspect         = 0.20
)

// Scorer computes heuristic confidence scores for candidate polygons.
// It carries the total image area so the size signal can be computed
// per candidate without re-deriving it.
type Scorer struct {
	imageArea float64
}

// NewScorer returns a scorer for an image of the given dimensions.
func NewScorer(width, height int) *Scorer {
	return &Scorer{imageArea: float64(width) * float64(height)}
}

// Score combines four independent shape signals, each normalized to
// [0,1], into a weighted confidence clamped to [0,1]. A degenerate
// zero-area bounding box scores 0.
func (s *Scorer) Score(poly Polygon, bb BoundingBox) float64 {
	boxArea := bb.Area()
	if boxArea <= 0 {
		return 0
	}

	area := ContourArea(poly)

	score := weightRectangularity*rectangularityScore(area, boxArea) +
		weightVertex*vertexScore(len(poly)) +
		weightSize*s.sizeScore(area) +
		weightAspect*aspectScore(bb.AspectRatio())

	return clamp01(score)
}

// rectangularityScore is the fill ratio of the polygon within its
// bounding box: 1.0 when the shape exactly fills the box.
func rectangularityScore(area, boxArea float64) float64 {
	return clamp01(area / boxArea)
}

// vertexScore rewards vertex counts near the expected 4-8 corner
// range. The penalty is linear away from 4 up to 8 vertices and falls
// off more gently beyond, since heavily simplified real rooms rarely
// exceed 8 corners but jagged candidates can.
func vertexScore(n int) float64 {
	if n <= 8 {
		return clamp01(1 - 0.1*math.Abs(float64(n-4)))
	}
	return clamp01(0.6 - 0.05*float64(n-8))
}

// sizeScore rewards candidates occupying roughly 1%-25% of the image:
// a linear ramp below 1% and a decreasing penalty above 25%.
func (s *Scorer) sizeScore(area float64) float64 {
	if s.imageArea <= 0 {
		return 0
	}
	frac := area / s.imageArea
	switch {
	case frac < 0.01:
		return clamp01(frac / 0.01)
	case frac <= 0.25:
		return 1.0
	default:
		return clamp01(1 - (frac-0.25)/0.75)
	}
}

// aspectScore rewards bounding boxes with aspect ratio below 3 and
// penalizes more elongated boxes.
func aspectScore(ratio float64) float64 {
	if ratio <= 3 {
		return 1.0
	}
	return clamp01(1 - (ratio-3)*0.25)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
