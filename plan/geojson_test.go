package plan

import (
	"encoding/json"
	"testing"
)

func TestPolygonGeometry_ClosesRing(t *testing.T) {
	g := PolygonGeometry(Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	if g.Type != GeometryPolygon {
		t.Errorf("Type = %q", g.Type)
	}

	var rings [][][2]int
	if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
		t.Fatalf("coordinates: %v", err)
	}
	if len(rings) != 1 {
		t.Fatalf("rings = %d, want 1", len(rings))
	}
	ring := rings[0]
	if len(ring) != 5 {
		t.Fatalf("ring length = %d, want 5 (closed)", len(ring))
	}
	if ring[0] != ring[4] {
		t.Errorf("ring not closed: %v != %v", ring[0], ring[4])
	}
}

func TestRoomsToGeoJSON(t *testing.T) {
	poly := Polygon{{5, 5}, {50, 5}, {50, 40}, {5, 40}}
	rooms := []Room{{
		ID:          1,
		Polygon:     poly,
		Lines:       EdgeList(poly),
		Area:        1575,
		Perimeter:   160,
		BoundingBox: poly.Bounds(),
		Confidence:  0.88,
		RoomType:    DefaultRoomType,
	}}

	fc := RoomsToGeoJSON(rooms)
	if fc.Type != "FeatureCollection" {
		t.Errorf("Type = %q", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(fc.Features))
	}

	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out struct {
		Features []struct {
			ID         int `json:"id"`
			Properties struct {
				RoomType   string  `json:"room_type"`
				Area       float64 `json:"area"`
				Confidence float64 `json:"confidence"`
				BBox       struct {
					XMin int `json:"x_min"`
					YMax int `json:"y_max"`
				} `json:"bounding_box"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	f := out.Features[0]
	if f.ID != 1 || f.Properties.RoomType != "unknown" || f.Properties.Area != 1575 {
		t.Errorf("feature = %+v", f)
	}
	if f.Properties.BBox.XMin != 5 || f.Properties.BBox.YMax != 40 {
		t.Errorf("bbox = %+v", f.Properties.BBox)
	}
}

func TestRoomsToGeoJSON_Empty(t *testing.T) {
	fc := RoomsToGeoJSON(nil)
	if fc.Features == nil || len(fc.Features) != 0 {
		t.Errorf("Features = %v, want empty non-nil slice", fc.Features)
	}
}
