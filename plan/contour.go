package plan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// maxBoundaryPoints caps boundary tracing as a safety net against a
// tracer bug walking in circles on pathological masks.
const maxBoundaryPoints = 100000

// ExtractContours traces the outer boundary of every connected
// foreground region in the mask and applies the candidate filters:
// area bounds (a contour with area exactly MinArea is kept), aspect
// ratio, and the outer-only hierarchy policy. Hole contours are traced
// and parented but never returned as candidates.
func ExtractContours(mask *BinaryMask, cfg DetectionConfig) []Contour {
	all := TraceContours(mask)

	var candidates []Contour
	for _, c := range all {
		if c.Hole || c.Parent != -1 {
			continue
		}
		area := ContourArea(c.Points)
		if area < cfg.MinArea || area > cfg.MaxArea {
			continue
		}
		if boundsOf(c.Points).AspectRatio() > cfg.AspectRatioLimit {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// TraceContours finds all region boundaries in the mask: one outer
// contour per connected foreground component plus one contour per
// enclosed background hole, linked to its parent component. Discovery
// order is raster scan order, which makes output deterministic.
func TraceContours(mask *BinaryMask) []Contour {
	labels := labelComponents(mask)

	var contours []Contour
	compToContour := make(map[int]int)

	// Outer boundaries, in first-encounter order.
	seen := make(map[int]bool)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			label := labels[y*mask.Width+x]
			if label == 0 || seen[label] {
				continue
			}
			seen[label] = true

			points := traceBoundary(x, y, func(px, py int) bool {
				return mask.At(px, py)
			})
			compToContour[label] = len(contours)
			contours = append(contours, Contour{Points: points, Parent: -1})
		}
	}

	// Background reachable from the image border is not a hole.
	outside := floodBorderBackground(mask)

	holeSeen := NewBinaryMask(mask.Width, mask.Height)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			i := y*mask.Width + x
			if mask.Pix[i] || outside.Pix[i] || holeSeen.Pix[i] {
				continue
			}

			region := collectHole(mask, outside, x, y)
			for _, p := range region {
				holeSeen.Set(p.X, p.Y, true)
			}

			// The pixel above the hole's topmost-leftmost pixel belongs
			// to the enclosing component.
			parent := -1
			if y > 0 {
				if label := labels[(y-1)*mask.Width+x]; label != 0 {
					if idx, ok := compToContour[label]; ok {
						parent = idx
					}
				}
			}

			points := traceBoundary(x, y, func(px, py int) bool {
				if px < 0 || py < 0 || px >= mask.Width || py >= mask.Height {
					return false
				}
				j := py*mask.Width + px
				return !mask.Pix[j] && !outside.Pix[j]
			})
			contours = append(contours, Contour{Points: points, Parent: parent, Hole: true})
		}
	}

	return contours
}

// labelComponents assigns a positive label to each 8-connected
// foreground component, 0 to background. Labels follow scan order.
func labelComponents(mask *BinaryMask) []int {
	labels := make([]int, mask.Width*mask.Height)
	next := 0

	var stack []Point
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.Pix[y*mask.Width+x] || labels[y*mask.Width+x] != 0 {
				continue
			}
			next++
			stack = append(stack[:0], Point{x, y})
			labels[y*mask.Width+x] = next

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= mask.Width || ny >= mask.Height {
							continue
						}
						i := ny*mask.Width + nx
						if mask.Pix[i] && labels[i] == 0 {
							labels[i] = next
							stack = append(stack, Point{nx, ny})
						}
					}
				}
			}
		}
	}

	return labels
}

// floodBorderBackground marks all background pixels 4-connected to the
// image border. Anything background and unmarked afterwards is a hole.
func floodBorderBackground(mask *BinaryMask) *BinaryMask {
	outside := NewBinaryMask(mask.Width, mask.Height)

	var stack []Point
	push := func(x, y int) {
		i := y*mask.Width + x
		if !mask.Pix[i] && !outside.Pix[i] {
			outside.Pix[i] = true
			stack = append(stack, Point{x, y})
		}
	}

	for x := 0; x < mask.Width; x++ {
		push(x, 0)
		push(x, mask.Height-1)
	}
	for y := 0; y < mask.Height; y++ {
		push(0, y)
		push(mask.Width-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X > 0 {
			push(p.X-1, p.Y)
		}
		if p.X < mask.Width-1 {
			push(p.X+1, p.Y)
		}
		if p.Y > 0 {
			push(p.X, p.Y-1)
		}
		if p.Y < mask.Height-1 {
			push(p.X, p.Y+1)
		}
	}

	return outside
}

// collectHole gathers the 4-connected background region containing
// (x, y) that is not reachable from the border.
func collectHole(mask, outside *BinaryMask, x, y int) []Point {
	visited := make(map[Point]bool)
	stack := []Point{{x, y}}
	visited[Point{x, y}] = true

	var region []Point
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		region = append(region, p)

		for _, d := range [4]Point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
			n := Point{p.X + d.X, p.Y + d.Y}
			if n.X < 0 || n.Y < 0 || n.X >= mask.Width || n.Y >= mask.Height {
				continue
			}
			i := n.Y*mask.Width + n.X
			if mask.Pix[i] || outside.Pix[i] || visited[n] {
				continue
			}
			visited[n] = true
			stack = append(stack, n)
		}
	}

	return region
}

// traceBoundary walks the outer boundary of the region containing the
// start pixel using a right-hand-rule wall follower over 4-connected
// steps. The start pixel must be the region's topmost-leftmost pixel,
// which guarantees no region pixel lies above or to its upper-left.
func traceBoundary(startX, startY int, inside func(x, y int) bool) []Point {
	// Directions: 0=N, 1=E, 2=S, 3=W.
	dirs := [4]Point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

	points := []Point{{startX, startY}}

	// Isolated pixel: no neighbor to walk to.
	if !inside(startX+1, startY) && !inside(startX-1, startY) &&
		!inside(startX, startY+1) && !inside(startX, startY-1) {
		return points
	}

	cur := Point{startX, startY}
	facing := 1 // start facing East; nothing lies north of the start pixel

	var firstPos Point
	firstDir := -1

	for {
		// Scan from the right hand of the current facing, turning left.
		moved := false
		for turn := 0; turn < 4; turn++ {
			d := (facing + 3 + turn) % 4
			next := Point{cur.X + dirs[d].X, cur.Y + dirs[d].Y}
			if inside(next.X, next.Y) {
				cur = next
				facing = d
				moved = true
				break
			}
		}
		if !moved {
			break
		}

		// The walk is closed when the first move repeats exactly.
		if firstDir == -1 {
			firstPos, firstDir = cur, facing
		} else if cur == firstPos && facing == firstDir {
			break
		}

		points = append(points, cur)
		if len(points) >= maxBoundaryPoints {
			break
		}
	}

	// The walk re-visits the start pixel just before closing.
	if len(points) > 1 && points[len(points)-1] == points[0] {
		points = points[:len(points)-1]
	}

	return points
}

// ContourArea returns the absolute shoelace area enclosed by the
// point sequence, treating it as a closed ring.
func ContourArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	ring = append(ring, ring[0])
	return math.Abs(planar.Area(ring))
}

// boundsOf computes the bounding box of a raw point sequence.
func boundsOf(points []Point) BoundingBox {
	return Polygon(points).Bounds()
}
