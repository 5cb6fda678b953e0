package plan

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestVectorOverlay_RenderToSVG(t *testing.T) {
	v := NewVectorOverlay(400, 300, []Room{testRoom(1, 50, 50, 200, 150)})

	var buf bytes.Buffer
	if err := v.RenderToSVG(&buf); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Error("output is not an SVG document")
	}
	if !strings.Contains(out, "path") {
		t.Error("no paths rendered")
	}
}

func TestVectorOverlay_RenderToPNG(t *testing.T) {
	v := NewVectorOverlay(200, 150, []Room{testRoom(1, 20, 20, 120, 100)})

	var buf bytes.Buffer
	if err := v.RenderToPNG(&buf); err != nil {
		t.Fatalf("RenderToPNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode rendered PNG: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Error("empty rendered image")
	}
}

func TestVectorOverlay_SkipsDegeneratePolygons(t *testing.T) {
	rooms := []Room{{ID: 1, Polygon: Polygon{{0, 0}, {10, 10}}}}
	v := NewVectorOverlay(100, 100, rooms)
	v.ShowBoxes = false

	var buf bytes.Buffer
	if err := v.RenderToSVG(&buf); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}
}
