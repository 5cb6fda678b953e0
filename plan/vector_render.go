package plan

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// VectorOverlay renders a detection result as vector graphics, either
// SVG for downstream editing or a rasterized PNG. Coordinates are the
// source image's pixel coordinates; one canvas unit equals one pixel.
type VectorOverlay struct {
	Width      float64
	Height     float64
	Rooms      []Room
	Resolution canvas.Resolution
	ShowBoxes  bool
}

// NewVectorOverlay creates an overlay for an image of the given pixel
// dimensions.
func NewVectorOverlay(width, height int, rooms []Room) *VectorOverlay {
	return &VectorOverlay{
		Width:      float64(width),
		Height:     float64(height),
		Rooms:      rooms,
		Resolution: canvas.DPI(96),
		ShowBoxes:  true,
	}
}

// canvasRenderer is the interface both svg and rasterizer renderers
// implement.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the overlay as an SVG document.
func (v *VectorOverlay) RenderToSVG(w io.Writer) error {
	svgRenderer := svg.New(w, v.Width, v.Height, nil)
	v.renderToCanvas(svgRenderer)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the overlay and writes it as PNG.
func (v *VectorOverlay) RenderToPNG(w io.Writer) error {
	rast := rasterizer.New(v.Width, v.Height, v.Resolution, canvas.DefaultColorSpace)
	v.renderToCanvas(rast)
	return png.Encode(w, rast)
}

// renderToCanvas draws the shared scene: white background, translucent
// room fills with solid outlines, then dashed bounding boxes.
func (v *VectorOverlay) renderToCanvas(renderer canvasRenderer) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(v.Width, v.Height), bgStyle, canvas.Identity)

	// Canvas origin is bottom-left; image origin is top-left.
	toCanvas := func(p Point) (float64, float64) {
		return float64(p.X), v.Height - float64(p.Y)
	}

	for _, room := range v.Rooms {
		if len(room.Polygon) < 3 {
			continue
		}
		col := roomColor(room.ID)

		roomStyle := canvas.DefaultStyle
		roomStyle.Fill = canvas.Paint{Color: translucent(col, 90)}
		roomStyle.Stroke = canvas.Paint{Color: col}
		roomStyle.StrokeWidth = 2.0

		cp := &canvas.Path{}
		for i, pt := range room.Polygon {
			cx, cy := toCanvas(pt)
			if i == 0 {
				cp.MoveTo(cx, cy)
			} else {
				cp.LineTo(cx, cy)
			}
		}
		cp.Close()
		renderer.RenderPath(cp, roomStyle, canvas.Identity)
	}

	if !v.ShowBoxes {
		return
	}

	for _, room := range v.Rooms {
		col := roomColor(room.ID)

		boxStyle := canvas.DefaultStyle
		boxStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		boxStyle.Stroke = canvas.Paint{Color: col}
		boxStyle.StrokeWidth = 1.0
		boxStyle.Dashes = []float64{6.0, 4.0}

		bb := room.BoundingBox
		bp := &canvas.Path{}
		x1, y1 := toCanvas(Point{bb.XMin, bb.YMin})
		x2, y2 := toCanvas(Point{bb.XMax, bb.YMax})
		bp.MoveTo(x1, y1)
		bp.LineTo(x2, y1)
		bp.LineTo(x2, y2)
		bp.LineTo(x1, y2)
		bp.Close()
		renderer.RenderPath(bp, boxStyle, canvas.Identity)
	}
}

// translucent premultiplies the color against the given alpha, as the
// canvas library expects premultiplied RGBA.
func translucent(c color.RGBA, alpha uint8) color.RGBA {
	a := uint32(alpha)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: alpha,
	}
}
