package plan

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 600">
  <g class="Floor">
    <g class="Wall">
      <polygon points="0,0 800,0 800,600 0,600"/>
    </g>
    <g class="Space Bedroom" id="room-1">
      <polygon points="10,10 300,10 300,250 10,250"/>
      <text>MH</text>
    </g>
    <g class="Space Bath Shower v2" id="room-2">
      <polygon points="320,10 500,10 500,200 320,200"/>
    </g>
    <g class="Space Sauna">
      <polygon points="520,10 700,10 700,200 520,200"/>
    </g>
    <g class="Space Kitchen" id="degenerate">
      <polygon points="0,0 10,0"/>
    </g>
  </g>
</svg>`

func TestParseSVG(t *testing.T) {
	ann, err := ParseSVG([]byte(sampleSVG), "sample_42")
	if err != nil {
		t.Fatalf("ParseSVG: %v", err)
	}

	if ann.ImageID != "sample_42" {
		t.Errorf("ImageID = %q", ann.ImageID)
	}
	if ann.Width != 800 || ann.Height != 600 {
		t.Errorf("size = %vx%v, want 800x600", ann.Width, ann.Height)
	}
	if len(ann.Rooms) != 3 {
		t.Fatalf("rooms = %d, want 3 (wall and degenerate skipped)", len(ann.Rooms))
	}

	bedroom := ann.Rooms[0]
	if bedroom.Type != "Bedroom" || bedroom.TypeRaw != "Bedroom" {
		t.Errorf("bedroom type = %q/%q", bedroom.Type, bedroom.TypeRaw)
	}
	if bedroom.ClassID != 0 {
		t.Errorf("bedroom ClassID = %d, want 0", bedroom.ClassID)
	}
	if bedroom.ID != "room-1" || bedroom.Label != "MH" {
		t.Errorf("bedroom id/label = %q/%q", bedroom.ID, bedroom.Label)
	}
	want := FloatBox{XMin: 10, YMin: 10, XMax: 300, YMax: 250}
	if bedroom.BBox != want {
		t.Errorf("bedroom bbox = %+v, want %+v", bedroom.BBox, want)
	}
	if len(bedroom.Polygon) != 4 {
		t.Errorf("bedroom polygon = %d points", len(bedroom.Polygon))
	}

	// Versioned subtype maps through the type table.
	bath := ann.Rooms[1]
	if bath.TypeRaw != "Bath Shower" || bath.Type != "Bathroom" {
		t.Errorf("bath = %q/%q, want Bath Shower/Bathroom", bath.TypeRaw, bath.Type)
	}
	if bath.ClassID != CategoryClassID["Bathroom"] {
		t.Errorf("bath ClassID = %d", bath.ClassID)
	}

	// Unmapped-to-category types fall back to Other; missing ids to
	// "unknown".
	sauna := ann.Rooms[2]
	if sauna.Type != "Other" || sauna.ClassID != 9 {
		t.Errorf("sauna = %q/%d, want Other/9", sauna.Type, sauna.ClassID)
	}
	if sauna.ID != "unknown" {
		t.Errorf("sauna.ID = %q, want unknown", sauna.ID)
	}
}

func TestParseSVG_WidthHeightFallback(t *testing.T) {
	svg := `<svg width="400px" height="300px">
		<g class="Space Kitchen"><polygon points="0,0 100,0 100,100 0,100"/></g>
	</svg>`
	ann, err := ParseSVG([]byte(svg), "x")
	if err != nil {
		t.Fatalf("ParseSVG: %v", err)
	}
	if ann.Width != 400 || ann.Height != 300 {
		t.Errorf("size = %vx%v, want 400x300", ann.Width, ann.Height)
	}
}

func TestParseSVG_Malformed(t *testing.T) {
	if _, err := ParseSVG([]byte("<svg><unclosed"), "x"); err == nil {
		t.Error("malformed XML accepted")
	}
}

func TestParseSVGFile_ImageIDFromDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "10054")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "model.svg")
	if err := os.WriteFile(path, []byte(sampleSVG), 0644); err != nil {
		t.Fatal(err)
	}

	ann, err := ParseSVGFile(path)
	if err != nil {
		t.Fatalf("ParseSVGFile: %v", err)
	}
	if ann.ImageID != "10054" {
		t.Errorf("ImageID = %q, want 10054", ann.ImageID)
	}
}

func TestExtractRoomType(t *testing.T) {
	cases := []struct {
		class string
		want  string
		ok    bool
	}{
		{"Space Bedroom", "Bedroom", true},
		{"Space Outdoor Balcony v2", "Outdoor Balcony", true},
		{"Space Bath Shower v3 highlight", "Bath Shower", true},
		{"Wall External", "", false},
		{"Space ", "", false},
	}
	for _, tc := range cases {
		got, ok := extractRoomType(tc.class)
		if got != tc.want || ok != tc.ok {
			t.Errorf("extractRoomType(%q) = %q, %v, want %q, %v",
				tc.class, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParsePolygonPoints(t *testing.T) {
	points := parsePolygonPoints("1.5,2 3,4.25 bad 5,6,7 8,9")
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3 (malformed pairs skipped)", len(points))
	}
	if points[0] != [2]float64{1.5, 2} || points[2] != [2]float64{8, 9} {
		t.Errorf("points = %v", points)
	}
}
