package plan

import (
	"context"
	"fmt"
	"image"
	"sort"
)

// Detector is the capability contract shared by all detection
// strategies. Downstream consumers depend only on this interface,
// never on which strategy produced the result.
type Detector interface {
	// Detect extracts room records from a decoded raster image.
	// A valid image with no qualifying candidates returns an empty
	// slice and no error.
	Detect(ctx context.Context, img image.Image) ([]Room, error)
}

// GeometryDetector is the geometry-heuristic strategy: preprocess to a
// binary mask, trace and filter contours, simplify, score, assemble.
// Stateless between calls; the config is immutable, so one instance is
// safe for concurrent use.
type GeometryDetector struct {
	cfg DetectionConfig
}

// NewGeometryDetector validates the config and returns a detector.
func NewGeometryDetector(cfg DetectionConfig) (*GeometryDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &GeometryDetector{cfg: cfg}, nil
}

// Config returns the detector's immutable configuration.
func (d *GeometryDetector) Config() DetectionConfig {
	return d.cfg
}

// Detect runs the full pipeline on one image. Candidate rejection
// (area, vertex count, aspect ratio, degenerate geometry) is silent;
// only invalid input is an error.
func (d *GeometryDetector) Detect(ctx context.Context, img image.Image) ([]Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-size image %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}

	mask := Preprocess(img, d.cfg)
	contours := ExtractContours(mask, d.cfg)
	scorer := NewScorer(b.Dx(), b.Dy())

	rooms := make([]Room, 0, len(contours))
	for _, c := range contours {
		rawPerimeter := Polygon(c.Points).Perimeter()

		poly, ok := SimplifyContour(c.Points, rawPerimeter, d.cfg)
		if !ok {
			continue
		}

		area := ContourArea(poly)
		if area <= 0 {
			continue
		}

		bb := poly.Bounds()
		if bb.Area() <= 0 {
			continue
		}
		confidence := scorer.Score(poly, bb)

		rooms = append(rooms, Room{
			Polygon:     poly,
			Lines:       EdgeList(poly),
			Area:        area,
			Perimeter:   poly.Perimeter(),
			BoundingBox: bb,
			Confidence:  confidence,
			RoomType:    DefaultRoomType,
		})
	}

	RankRooms(rooms)
	return rooms, nil
}

// EdgeList derives the ordered edge list of a polygon: edge i connects
// vertex i to vertex (i+1) mod n, so the edge count equals the vertex
// count and the last edge closes back to the first vertex.
func EdgeList(poly Polygon) []Line {
	lines := make([]Line, 0, len(poly))
	for i := range poly {
		lines = append(lines, Line{
			Start: poly[i],
			End:   poly[(i+1)%len(poly)],
		})
	}
	return lines
}

// RankRooms sorts rooms by descending area, stable on discovery order
// for ties, and assigns ids as the 1-based rank.
func RankRooms(rooms []Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Area > rooms[j].Area
	})
	for i := range rooms {
		rooms[i].ID = i + 1
	}
}
