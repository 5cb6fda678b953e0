package plan

import (
	"testing"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// fillRect sets every pixel in the inclusive rectangle to foreground.
func fillRect(m *BinaryMask, x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Set(x, y, true)
		}
	}
}

// clearRect resets every pixel in the inclusive rectangle.
func clearRect(m *BinaryMask, x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Set(x, y, false)
		}
	}
}

// ---------------------------------------------------------------------------
// TraceContours
// ---------------------------------------------------------------------------

func TestTraceContours_Rectangle(t *testing.T) {
	mask := NewBinaryMask(100, 100)
	fillRect(mask, 10, 10, 59, 59)

	contours := TraceContours(mask)
	if len(contours) != 1 {
		t.Fatalf("contours = %d, want 1", len(contours))
	}

	c := contours[0]
	if c.Hole {
		t.Error("outer contour marked as hole")
	}
	if c.Parent != -1 {
		t.Errorf("Parent = %d, want -1", c.Parent)
	}

	// Pixel-center boundary of a 50x50 block encloses 49x49 units.
	area := ContourArea(c.Points)
	if area != 49*49 {
		t.Errorf("area = %v, want %v", area, 49*49)
	}

	bb := boundsOf(c.Points)
	want := BoundingBox{XMin: 10, YMin: 10, XMax: 59, YMax: 59}
	if bb != want {
		t.Errorf("bounds = %+v, want %+v", bb, want)
	}
}

func TestTraceContours_HoleParenting(t *testing.T) {
	mask := NewBinaryMask(100, 100)
	fillRect(mask, 10, 10, 59, 59)
	clearRect(mask, 20, 20, 49, 49)

	contours := TraceContours(mask)
	if len(contours) != 2 {
		t.Fatalf("contours = %d, want 2 (outer + hole)", len(contours))
	}

	outer, hole := contours[0], contours[1]
	if outer.Hole {
		t.Error("first contour should be the outer boundary")
	}
	if !hole.Hole {
		t.Error("second contour should be the hole")
	}
	if hole.Parent != 0 {
		t.Errorf("hole.Parent = %d, want 0", hole.Parent)
	}

	bb := boundsOf(hole.Points)
	want := BoundingBox{XMin: 20, YMin: 20, XMax: 49, YMax: 49}
	if bb != want {
		t.Errorf("hole bounds = %+v, want %+v", bb, want)
	}
}

func TestTraceContours_BorderBackgroundIsNotHole(t *testing.T) {
	// A solid block does not enclose anything; the surrounding
	// background touches the border and must not be reported.
	mask := NewBinaryMask(50, 50)
	fillRect(mask, 5, 5, 30, 30)

	contours := TraceContours(mask)
	if len(contours) != 1 {
		t.Fatalf("contours = %d, want 1", len(contours))
	}
	if contours[0].Hole {
		t.Error("solid block produced a hole contour")
	}
}

func TestTraceContours_TwoComponents(t *testing.T) {
	mask := NewBinaryMask(100, 100)
	fillRect(mask, 5, 5, 30, 30)
	fillRect(mask, 50, 50, 90, 90)

	contours := TraceContours(mask)
	if len(contours) != 2 {
		t.Fatalf("contours = %d, want 2", len(contours))
	}
	// Raster scan order: the upper-left component first.
	if boundsOf(contours[0].Points).XMin != 5 {
		t.Error("components not in scan order")
	}
}

// ---------------------------------------------------------------------------
// traceBoundary edge cases
// ---------------------------------------------------------------------------

func TestTraceBoundary_IsolatedPixel(t *testing.T) {
	mask := NewBinaryMask(10, 10)
	mask.Set(4, 4, true)

	contours := TraceContours(mask)
	if len(contours) != 1 {
		t.Fatalf("contours = %d, want 1", len(contours))
	}
	if got := len(contours[0].Points); got != 1 {
		t.Errorf("points = %d, want 1", got)
	}
}

func TestTraceBoundary_ThinLineTerminates(t *testing.T) {
	// A one-pixel-wide line is walked down and back; the tracer must
	// close the loop instead of hitting the safety cap.
	mask := NewBinaryMask(30, 30)
	fillRect(mask, 5, 10, 24, 10)

	contours := TraceContours(mask)
	if len(contours) != 1 {
		t.Fatalf("contours = %d, want 1", len(contours))
	}
	if got := len(contours[0].Points); got >= 100 {
		t.Errorf("points = %d, trace did not terminate cleanly", got)
	}
	if area := ContourArea(contours[0].Points); area != 0 {
		t.Errorf("area = %v, want 0 for a degenerate line", area)
	}
}

func TestContourArea_Degenerate(t *testing.T) {
	if got := ContourArea(nil); got != 0 {
		t.Errorf("ContourArea(nil) = %v, want 0", got)
	}
	if got := ContourArea([]Point{{0, 0}, {5, 5}}); got != 0 {
		t.Errorf("ContourArea(2 points) = %v, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// ExtractContours filters
// ---------------------------------------------------------------------------

func TestExtractContours_MinAreaBoundaryInclusive(t *testing.T) {
	// A 51x51 block traces to an enclosed area of exactly 2500.
	mask := NewBinaryMask(100, 100)
	fillRect(mask, 10, 10, 60, 60)

	cfg := DefaultDetectionConfig()
	cfg.MinArea = 2500

	if got := len(ExtractContours(mask, cfg)); got != 1 {
		t.Errorf("area == MinArea: candidates = %d, want 1 (boundary kept)", got)
	}

	cfg.MinArea = 2501
	if got := len(ExtractContours(mask, cfg)); got != 0 {
		t.Errorf("area < MinArea: candidates = %d, want 0", got)
	}
}

func TestExtractContours_MaxAreaFilter(t *testing.T) {
	mask := NewBinaryMask(100, 100)
	fillRect(mask, 10, 10, 60, 60)

	cfg := DefaultDetectionConfig()
	cfg.MinArea = 100
	cfg.MaxArea = 1000

	if got := len(ExtractContours(mask, cfg)); got != 0 {
		t.Errorf("candidates = %d, want 0 for oversized region", got)
	}
}

func TestExtractContours_AspectRatioFilter(t *testing.T) {
	mask := NewBinaryMask(300, 100)
	fillRect(mask, 10, 10, 250, 19) // 241x10 strip, aspect ~26
	fillRect(mask, 10, 40, 70, 99)  // square-ish control

	cfg := DefaultDetectionConfig()
	cfg.MinArea = 100

	candidates := ExtractContours(mask, cfg)
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1 (strip filtered)", len(candidates))
	}
	if boundsOf(candidates[0].Points).YMin != 40 {
		t.Error("wrong candidate survived the aspect filter")
	}
}

func TestExtractContours_OuterOnlyPolicy(t *testing.T) {
	// A region with an interior hole yields exactly one candidate; the
	// hole is traced but never promoted.
	mask := NewBinaryMask(200, 200)
	fillRect(mask, 10, 10, 150, 150)
	clearRect(mask, 50, 50, 110, 110)

	cfg := DefaultDetectionConfig()
	cfg.MinArea = 100

	candidates := ExtractContours(mask, cfg)
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if candidates[0].Hole {
		t.Error("hole contour promoted to candidate")
	}
}

func TestExtractContours_EmptyMask(t *testing.T) {
	mask := NewBinaryMask(50, 50)
	if got := len(ExtractContours(mask, DefaultDetectionConfig())); got != 0 {
		t.Errorf("candidates = %d, want 0 for empty mask", got)
	}
}
