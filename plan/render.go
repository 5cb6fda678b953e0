package plan

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// goldenAngle spaces room hues so adjacent ids stay distinguishable.
const goldenAngle = 137.508

// fillAlpha is the opacity of room fills over the source image.
const fillAlpha = 0.35

// RenderOverlay draws the detected rooms over the source image:
// translucent fills, polygon outlines, bounding boxes, and an R<id>
// label per room. Colors are a deterministic function of the room id,
// so re-renders of the same result are identical.
func RenderOverlay(src image.Image, rooms []Room) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	for _, room := range rooms {
		col := roomColor(room.ID)

		fillPolygon(dst, room.Polygon, col)

		for _, line := range room.Lines {
			drawLine(dst, line.Start, line.End, col)
		}

		drawRect(dst, room.BoundingBox, col)

		labelX := room.BoundingBox.XMin + 4
		labelY := room.BoundingBox.YMin + 14
		drawText(dst, labelX, labelY, fmt.Sprintf("R%d", room.ID), col)
	}

	return dst
}

// roomColor returns the deterministic palette color for a room id.
func roomColor(id int) color.RGBA {
	hue := math.Mod(float64(id-1)*goldenAngle, 360)
	c := colorful.Hsv(hue, 0.75, 0.90)
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// fillPolygon blends the polygon interior with the room color using an
// even-odd scanline fill.
func fillPolygon(dst *image.RGBA, poly Polygon, col color.RGBA) {
	if len(poly) < 3 {
		return
	}

	bb := poly.Bounds()
	yMin := clampInt(bb.YMin, 0, dst.Bounds().Dy()-1)
	yMax := clampInt(bb.YMax, 0, dst.Bounds().Dy()-1)

	for y := yMin; y <= yMax; y++ {
		xs := scanlineCrossings(poly, float64(y)+0.5)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := clampInt(int(math.Ceil(xs[i])), 0, dst.Bounds().Dx()-1)
			x1 := clampInt(int(math.Floor(xs[i+1])), 0, dst.Bounds().Dx()-1)
			for x := x0; x <= x1; x++ {
				blendPixel(dst, x, y, col)
			}
		}
	}
}

// scanlineCrossings returns the sorted x coordinates where polygon
// edges cross the horizontal line at y.
func scanlineCrossings(poly Polygon, y float64) []float64 {
	var xs []float64
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]

		ay, by := float64(a.Y), float64(b.Y)
		if (ay <= y && by > y) || (by <= y && ay > y) {
			t := (y - ay) / (by - ay)
			xs = append(xs, float64(a.X)+t*float64(b.X-a.X))
		}
	}
	sort.Float64s(xs)
	return xs
}

// blendPixel alpha-blends the fill color over the destination pixel.
func blendPixel(dst *image.RGBA, x, y int, col color.RGBA) {
	i := dst.PixOffset(x, y)
	dst.Pix[i+0] = uint8(fillAlpha*float64(col.R) + (1-fillAlpha)*float64(dst.Pix[i+0]))
	dst.Pix[i+1] = uint8(fillAlpha*float64(col.G) + (1-fillAlpha)*float64(dst.Pix[i+1]))
	dst.Pix[i+2] = uint8(fillAlpha*float64(col.B) + (1-fillAlpha)*float64(dst.Pix[i+2]))
	dst.Pix[i+3] = 255
}

// drawLine draws a 1px Bresenham line between two points.
func drawLine(dst *image.RGBA, a, b Point, col color.RGBA) {
	dx := absInt(b.X - a.X)
	dy := -absInt(b.Y - a.Y)
	sx := 1
	if a.X > b.X {
		sx = -1
	}
	sy := 1
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy

	x, y := a.X, a.Y
	for {
		setPixel(dst, x, y, col)
		if x == b.X && y == b.Y {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// drawRect draws the bounding box outline.
func drawRect(dst *image.RGBA, bb BoundingBox, col color.RGBA) {
	drawLine(dst, Point{bb.XMin, bb.YMin}, Point{bb.XMax, bb.YMin}, col)
	drawLine(dst, Point{bb.XMax, bb.YMin}, Point{bb.XMax, bb.YMax}, col)
	drawLine(dst, Point{bb.XMax, bb.YMax}, Point{bb.XMin, bb.YMax}, col)
	drawLine(dst, Point{bb.XMin, bb.YMax}, Point{bb.XMin, bb.YMin}, col)
}

func setPixel(dst *image.RGBA, x, y int, col color.RGBA) {
	if x < 0 || y < 0 || x >= dst.Bounds().Dx() || y >= dst.Bounds().Dy() {
		return
	}
	dst.SetRGBA(x, y, col)
}

// drawText renders a small label at the given baseline position.
func drawText(img *image.RGBA, x, y int, text string, c color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
