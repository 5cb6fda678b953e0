package plan

import (
	"math"
	"testing"
)

func TestScore_PerfectRectangle(t *testing.T) {
	// A square filling ~9% of the image maxes out every signal.
	s := NewScorer(1000, 1000)
	poly := Polygon{{100, 100}, {400, 100}, {400, 400}, {100, 400}}

	got := s.Score(poly, poly.Bounds())
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Score = %v, want 1.0", got)
	}
}

func TestScore_DegenerateBox(t *testing.T) {
	s := NewScorer(1000, 1000)
	poly := Polygon{{10, 10}, {50, 10}, {90, 10}}

	if got := s.Score(poly, poly.Bounds()); got != 0 {
		t.Errorf("Score = %v, want 0 for zero-area box", got)
	}
}

func TestScore_ClampedToUnitInterval(t *testing.T) {
	s := NewScorer(100, 100)
	// Oversized relative to the image, elongated, many vertices.
	poly := Polygon{
		{0, 0}, {99, 0}, {99, 3}, {90, 3}, {80, 2}, {70, 3}, {60, 2},
		{50, 3}, {40, 2}, {30, 3}, {20, 2}, {10, 3}, {5, 2}, {0, 3},
	}
	got := s.Score(poly, poly.Bounds())
	if got < 0 || got > 1 {
		t.Errorf("Score = %v, want within [0,1]", got)
	}
}

func TestVertexScore(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{4, 1.0},
		{5, 0.9},
		{8, 0.6},
		{3, 0.9},
		{12, 0.4},
		{30, 0.0}, // clamped
	}
	for _, tc := range cases {
		if got := vertexScore(tc.n); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("vertexScore(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestSizeScore(t *testing.T) {
	s := NewScorer(1000, 1000) // image area 1e6

	cases := []struct {
		area float64
		want float64
	}{
		{0, 0},
		{5000, 0.5},    // half of the 1% ramp
		{10000, 1.0},   // exactly 1%
		{250000, 1.0},  // exactly 25%
		{625000, 0.5},  // halfway down the penalty slope
		{1000000, 0.0}, // whole image
	}
	for _, tc := range cases {
		if got := s.sizeScore(tc.area); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("sizeScore(%v) = %v, want %v", tc.area, got, tc.want)
		}
	}
}

func TestAspectScore(t *testing.T) {
	cases := []struct {
		ratio float64
		want  float64
	}{
		{1, 1.0},
		{3, 1.0},
		{5, 0.5},
		{7, 0.0},
		{20, 0.0}, // clamped
	}
	for _, tc := range cases {
		if got := aspectScore(tc.ratio); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("aspectScore(%v) = %v, want %v", tc.ratio, got, tc.want)
		}
	}
}

func TestRectangularityScore(t *testing.T) {
	if got := rectangularityScore(50, 100); got != 0.5 {
		t.Errorf("rectangularityScore = %v, want 0.5", got)
	}
	// Numeric noise above 1 is clamped.
	if got := rectangularityScore(101, 100); got != 1.0 {
		t.Errorf("rectangularityScore = %v, want 1.0", got)
	}
}

func TestScoreWeightsSumToOne(t *testing.T) {
	sum := weightRectangularity + weightVertex + weightSize + weightAspect
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weight sum = %v, want 1.0", sum)
	}
}
