package plan

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// RoomTypeMapping reduces raw SVG room classes to the fixed category
// set used for training labels.
var RoomTypeMapping = map[string]string{
	"Bedroom":         "Bedroom",
	"DressingRoom":    "Bedroom",
	"LivingRoom":      "LivingRoom",
	"Kitchen":         "Kitchen",
	"Bath":            "Bathroom",
	"Bath Shower":     "Bathroom",
	"Dining":          "Dining",
	"Entry Lobby":     "Entry",
	"Entry":           "Entry",
	"DraughtLobby":    "Entry",
	"Closet WalkIn":   "Closet",
	"Closet":          "Closet",
	"Storage":         "Closet",
	"Utility Laundry": "Utility",
	"Utility":         "Utility",
	"TechnicalRoom":   "Utility",
	"Outdoor":         "Outdoor",
	"Outdoor Balcony": "Outdoor",
	"Outdoor Terrace": "Outdoor",
	"Outdoor Garden":  "Outdoor",
	"Undefined":       "Other",
	"UserDefined":     "Other",
	"Garage":          "Other",
	"Sauna":           "Other",
}

// CategoryClassID maps a category to its label class id. Unlisted
// categories fall back to Other.
var CategoryClassID = map[string]int{
	"Bedroom":    0,
	"LivingRoom": 1,
	"Kitchen":    2,
	"Bathroom":   3,
	"Dining":     4,
	"Entry":      5,
	"Closet":     6,
	"Utility":    7,
	"Outdoor":    8,
	"Other":      9,
}

// FloatBox is a bounding box in SVG document coordinates, which are
// fractional unlike the pixel-space BoundingBox.
type FloatBox struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// SVGRoom is one room annotation extracted from an SVG floor plan.
type SVGRoom struct {
	ID      string
	Type    string
	TypeRaw string
	ClassID int
	Label   string
	Polygon [][2]float64
	BBox    FloatBox
}

// SVGAnnotation holds everything parsed from one annotation document.
type SVGAnnotation struct {
	ImageID string
	Width   float64
	Height  float64
	Rooms   []SVGRoom
}

// svgNode is a generic XML tree node. Parsing the whole document into
// a tree keeps the extraction logic independent of the SVG's exact
// nesting, which varies between dataset revisions.
type svgNode struct {
	XMLName  xml.Name
	Class    string    `xml:"class,attr"`
	ID       string    `xml:"id,attr"`
	Points   string    `xml:"points,attr"`
	ViewBox  string    `xml:"viewBox,attr"`
	WidthA   string    `xml:"width,attr"`
	HeightA  string    `xml:"height,attr"`
	Text     string    `xml:",chardata"`
	Children []svgNode `xml:",any"`
}

var roomTypeRe = regexp.MustCompile(`Space\s+(.+?)(?:\s+v\d|$)`)
var typeSuffixRe = regexp.MustCompile(`\s+v\d.*$`)

// ParseSVGFile parses an SVG floor-plan annotation file. The image id
// is the parent directory name, matching the dataset layout where each
// sample lives in its own directory.
func ParseSVGFile(path string) (*SVGAnnotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SVG file: %w", err)
	}
	imageID := filepath.Base(filepath.Dir(path))
	return ParseSVG(data, imageID)
}

// ParseSVG extracts room annotations from SVG bytes. Room elements are
// those whose class contains "Space" but not "Wall"; each must carry a
// child polygon with at least three points and a non-degenerate box.
func ParseSVG(data []byte, imageID string) (*SVGAnnotation, error) {
	var root svgNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing SVG: %w", err)
	}

	width, height := documentSize(&root)

	ann := &SVGAnnotation{
		ImageID: imageID,
		Width:   width,
		Height:  height,
	}
	collectRooms(&root, &ann.Rooms)
	return ann, nil
}

// documentSize reads dimensions from the viewBox, falling back to the
// width/height attributes.
func documentSize(root *svgNode) (float64, float64) {
	if root.ViewBox != "" {
		fields := strings.Fields(root.ViewBox)
		if len(fields) == 4 {
			w, errW := strconv.ParseFloat(fields[2], 64)
			h, errH := strconv.ParseFloat(fields[3], 64)
			if errW == nil && errH == nil {
				return w, h
			}
		}
	}
	w, _ := strconv.ParseFloat(strings.TrimSuffix(root.WidthA, "px"), 64)
	h, _ := strconv.ParseFloat(strings.TrimSuffix(root.HeightA, "px"), 64)
	return w, h
}

// collectRooms walks the tree and appends every valid room element.
func collectRooms(node *svgNode, rooms *[]SVGRoom) {
	if strings.Contains(node.Class, "Space") && !strings.Contains(node.Class, "Wall") {
		if room, ok := parseRoomElement(node); ok {
			*rooms = append(*rooms, room)
		}
	}
	for i := range node.Children {
		collectRooms(&node.Children[i], rooms)
	}
}

// parseRoomElement extracts one room from a Space element.
func parseRoomElement(node *svgNode) (SVGRoom, bool) {
	typeRaw, ok := extractRoomType(node.Class)
	if !ok {
		return SVGRoom{}, false
	}

	category, ok := RoomTypeMapping[typeRaw]
	if !ok {
		category = "Other"
	}
	classID, ok := CategoryClassID[category]
	if !ok {
		classID = CategoryClassID["Other"]
	}

	// Direct children only; nested Space groups handle themselves.
	var polygon [][2]float64
	for i := range node.Children {
		if node.Children[i].XMLName.Local == "polygon" {
			polygon = parsePolygonPoints(node.Children[i].Points)
			break
		}
	}
	if len(polygon) < 3 {
		return SVGRoom{}, false
	}

	bbox := polygonFloatBounds(polygon)
	if bbox.XMax <= bbox.XMin || bbox.YMax <= bbox.YMin {
		return SVGRoom{}, false
	}

	id := node.ID
	if id == "" {
		id = "unknown"
	}

	return SVGRoom{
		ID:      id,
		Type:    category,
		TypeRaw: typeRaw,
		ClassID: classID,
		Label:   extractRoomLabel(node),
		Polygon: polygon,
		BBox:    bbox,
	}, true
}

// extractRoomType pulls the raw type out of a class attribute like
// "Space Bedroom" or "Space Outdoor Balcony v2".
func extractRoomType(classAttr string) (string, bool) {
	m := roomTypeRe.FindStringSubmatch(classAttr)
	if m == nil {
		return "", false
	}
	t := strings.TrimSpace(typeSuffixRe.ReplaceAllString(m[1], ""))
	if t == "" {
		return "", false
	}
	return t, true
}

// parsePolygonPoints parses an SVG points attribute: "x,y x,y ...".
// Malformed pairs are skipped.
func parsePolygonPoints(s string) [][2]float64 {
	var points [][2]float64
	for _, pair := range strings.Fields(s) {
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			continue
		}
		x, errX := strconv.ParseFloat(xy[0], 64)
		y, errY := strconv.ParseFloat(xy[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		points = append(points, [2]float64{x, y})
	}
	return points
}

// polygonFloatBounds computes the vertex-extrema box.
func polygonFloatBounds(points [][2]float64) FloatBox {
	box := FloatBox{
		XMin: points[0][0], YMin: points[0][1],
		XMax: points[0][0], YMax: points[0][1],
	}
	for _, p := range points[1:] {
		if p[0] < box.XMin {
			box.XMin = p[0]
		}
		if p[0] > box.XMax {
			box.XMax = p[0]
		}
		if p[1] < box.YMin {
			box.YMin = p[1]
		}
		if p[1] > box.YMax {
			box.YMax = p[1]
		}
	}
	return box
}

// extractRoomLabel finds the first non-empty text content in the room
// subtree, the short plan label like "MH" or "K".
func extractRoomLabel(node *svgNode) string {
	if node.XMLName.Local == "text" {
		if t := strings.TrimSpace(node.Text); t != "" {
			return t
		}
	}
	for i := range node.Children {
		if label := extractRoomLabel(&node.Children[i]); label != "" {
			return label
		}
	}
	return ""
}
