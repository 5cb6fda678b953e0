package plan

import "encoding/json"

// GeometryType represents the GeoJSON geometry type
type GeometryType string

const (
	GeometryPoint   GeometryType = "Point"
	GeometryPolygon GeometryType = "Polygon"
)

// Geometry represents a GeoJSON geometry object
type Geometry struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature represents a GeoJSON feature with geometry and properties
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	ID         interface{}            `json:"id,omitempty"`
}

// FeatureCollection represents a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates a new empty FeatureCollection
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0),
	}
}

// AddFeature appends a feature to the collection
func (fc *FeatureCollection) AddFeature(f *Feature) {
	fc.Features = append(fc.Features, f)
}

// PolygonGeometry converts a room polygon to a GeoJSON Polygon
// geometry in image pixel coordinates. The ring is closed explicitly
// as GeoJSON requires.
func PolygonGeometry(poly Polygon) *Geometry {
	coords := make([][2]int, 0, len(poly)+1)
	for _, p := range poly {
		coords = append(coords, [2]int{p.X, p.Y})
	}
	if len(coords) > 0 {
		coords = append(coords, coords[0])
	}

	rings := [][][2]int{coords}
	coordsJSON, _ := json.Marshal(rings)
	return &Geometry{
		Type:        GeometryPolygon,
		Coordinates: coordsJSON,
	}
}

// RoomsToGeoJSON exports a detection result as a FeatureCollection:
// one Polygon feature per room with the derived metrics as properties.
func RoomsToGeoJSON(rooms []Room) *FeatureCollection {
	fc := NewFeatureCollection()
	for _, room := range rooms {
		f := &Feature{
			Type:     "Feature",
			Geometry: PolygonGeometry(room.Polygon),
			ID:       room.ID,
			Properties: map[string]interface{}{
				"room_type":  room.RoomType,
				"area":       room.Area,
				"perimeter":  room.Perimeter,
				"confidence": room.Confidence,
				"bounding_box": map[string]int{
					"x_min": room.BoundingBox.XMin,
					"y_min": room.BoundingBox.YMin,
					"x_max": room.BoundingBox.XMax,
					"y_max": room.BoundingBox.YMax,
				},
			},
		}
		fc.AddFeature(f)
	}
	return fc
}
