package plan

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point represents a pixel coordinate on the source image.
// It serializes as a two-element [x, y] array.
type Point struct {
	X int
	Y int
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a [x, y] array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var arr [2]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("parsing point: %w", err)
	}
	p.X, p.Y = arr[0], arr[1]
	return nil
}

// Polygon is an ordered vertex sequence, implicitly closed (the last
// vertex connects back to the first).
type Polygon []Point

// Perimeter returns the sum of Euclidean edge lengths, including the
// closing edge from the last vertex back to the first.
func (pg Polygon) Perimeter() float64 {
	if len(pg) < 2 {
		return 0
	}
	var total float64
	for i := range pg {
		a := pg[i]
		b := pg[(i+1)%len(pg)]
		dx := float64(b.X - a.X)
		dy := float64(b.Y - a.Y)
		total += math.Hypot(dx, dy)
	}
	return total
}

// Bounds returns the vertex-extrema bounding box.
func (pg Polygon) Bounds() BoundingBox {
	if len(pg) == 0 {
		return BoundingBox{}
	}
	bb := BoundingBox{XMin: pg[0].X, YMin: pg[0].Y, XMax: pg[0].X, YMax: pg[0].Y}
	for _, p := range pg[1:] {
		if p.X < bb.XMin {
			bb.XMin = p.X
		}
		if p.X > bb.XMax {
			bb.XMax = p.X
		}
		if p.Y < bb.YMin {
			bb.YMin = p.Y
		}
		if p.Y > bb.YMax {
			bb.YMax = p.Y
		}
	}
	return bb
}

// BoundingBox is the canonical corner-pair box representation.
// Origin+size forms exist only at external conversion boundaries.
type BoundingBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Width returns the box width in pixels.
func (bb BoundingBox) Width() int { return bb.XMax - bb.XMin }

// Height returns the box height in pixels.
func (bb BoundingBox) Height() int { return bb.YMax - bb.YMin }

// Area returns the box area in square pixels.
func (bb BoundingBox) Area() float64 {
	return float64(bb.Width()) * float64(bb.Height())
}

// AspectRatio returns max(w,h)/min(w,h) with the divisor floored at 1
// so degenerate boxes do not divide by zero.
func (bb BoundingBox) AspectRatio() float64 {
	w, h := bb.Width(), bb.Height()
	long, short := w, h
	if h > w {
		long, short = h, w
	}
	if short < 1 {
		short = 1
	}
	return float64(long) / float64(short)
}

// Line is a single polygon edge.
type Line struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Room is the canonical detection output unit. It is assembled once per
// candidate polygon and never mutated afterwards.
type Room struct {
	ID          int         `json:"id"`
	Polygon     Polygon     `json:"polygon"`
	Lines       []Line      `json:"lines"`
	Area        float64     `json:"area"`
	Perimeter   float64     `json:"perimeter"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	RoomType    string      `json:"room_type"`
}

// DefaultRoomType is the placeholder used until manual or model-based
// classification supplies a real type.
const DefaultRoomType = "unknown"

// Contour is a traced region boundary on a binary mask. Parent is the
// index of the enclosing contour, or -1 for outer boundaries. Hole
// marks boundaries of background regions enclosed by foreground.
type Contour struct {
	Points []Point
	Parent int
	Hole   bool
}

// ImageShape describes the dimensions of a processed image as reported
// in detection responses and annotation files: [height, width, channels].
type ImageShape [3]int
