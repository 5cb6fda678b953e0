package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// datasetSplits are the fixed dataset partitions of the label layout.
var datasetSplits = []string{"train", "val", "test"}

// YOLOConverter writes room annotations as normalized YOLO label files
// under the standard images/<split> + labels/<split> layout.
type YOLOConverter struct {
	outDir string
}

// NewYOLOConverter creates the dataset directory structure under
// outDir.
func NewYOLOConverter(outDir string) (*YOLOConverter, error) {
	for _, split := range datasetSplits {
		for _, sub := range []string{"images", "labels"} {
			if err := os.MkdirAll(filepath.Join(outDir, sub, split), 0755); err != nil {
				return nil, fmt.Errorf("creating dataset directory: %w", err)
			}
		}
	}
	return &YOLOConverter{outDir: outDir}, nil
}

// ConvertAnnotation formats one label line per room:
// "<class_id> <x_center> <y_center> <width> <height>", all coordinates
// normalized to [0,1] with six decimal places.
func (c *YOLOConverter) ConvertAnnotation(rooms []SVGRoom, imgWidth, imgHeight int) []string {
	lines := make([]string, 0, len(rooms))
	for _, room := range rooms {
		xc, yc, w, h := bboxToYOLO(room.BBox, imgWidth, imgHeight)
		lines = append(lines, fmt.Sprintf("%d %.6f %.6f %.6f %.6f", room.ClassID, xc, yc, w, h))
	}
	return lines
}

// bboxToYOLO converts a corner-pair box to normalized center form,
// clamped to [0,1]. This is the only place the origin+size style box
// representation exists.
func bboxToYOLO(box FloatBox, imgWidth, imgHeight int) (xc, yc, w, h float64) {
	fw, fh := float64(imgWidth), float64(imgHeight)
	xc = clamp01((box.XMin + box.XMax) / 2 / fw)
	yc = clamp01((box.YMin + box.YMax) / 2 / fh)
	w = clamp01((box.XMax - box.XMin) / fw)
	h = clamp01((box.YMax - box.YMin) / fh)
	return xc, yc, w, h
}

// ScaleRooms rescales annotation boxes and polygons from SVG document
// coordinates to image pixel coordinates when the two differ.
func ScaleRooms(rooms []SVGRoom, svgWidth, svgHeight float64, imgWidth, imgHeight int) []SVGRoom {
	if svgWidth <= 0 || svgHeight <= 0 {
		return rooms
	}
	sx := float64(imgWidth) / svgWidth
	sy := float64(imgHeight) / svgHeight

	scaled := make([]SVGRoom, len(rooms))
	for i, room := range rooms {
		r := room
		r.BBox = FloatBox{
			XMin: room.BBox.XMin * sx,
			YMin: room.BBox.YMin * sy,
			XMax: room.BBox.XMax * sx,
			YMax: room.BBox.YMax * sy,
		}
		r.Polygon = make([][2]float64, len(room.Polygon))
		for j, p := range room.Polygon {
			r.Polygon[j] = [2]float64{p[0] * sx, p[1] * sy}
		}
		scaled[i] = r
	}
	return scaled
}

// ProcessSample converts one image + annotation pair into the dataset:
// the image is copied under images/<split> and its label file written
// under labels/<split>. A sample with no rooms is an error so the
// caller can count it.
func (c *YOLOConverter) ProcessSample(imagePath string, ann *SVGAnnotation, split string) error {
	if !validSplit(split) {
		return fmt.Errorf("unknown dataset split %q", split)
	}

	img, err := LoadImage(imagePath)
	if err != nil {
		return err
	}
	b := img.Bounds()
	imgWidth, imgHeight := b.Dx(), b.Dy()

	rooms := ann.Rooms
	if ann.Width != float64(imgWidth) || ann.Height != float64(imgHeight) {
		rooms = ScaleRooms(rooms, ann.Width, ann.Height, imgWidth, imgHeight)
	}

	lines := c.ConvertAnnotation(rooms, imgWidth, imgHeight)
	if len(lines) == 0 {
		return fmt.Errorf("no rooms in annotation %s", ann.ImageID)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	imgOut := filepath.Join(c.outDir, "images", split, ann.ImageID+filepath.Ext(imagePath))
	if err := os.WriteFile(imgOut, data, 0644); err != nil {
		return fmt.Errorf("copying image: %w", err)
	}

	labelOut := filepath.Join(c.outDir, "labels", split, ann.ImageID+".txt")
	if err := os.WriteFile(labelOut, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("writing labels: %w", err)
	}

	return nil
}

// WriteDatasetYAML writes the dataset manifest consumed by training.
func (c *YOLOConverter) WriteDatasetYAML(classNames []string) error {
	var sb strings.Builder
	sb.WriteString("# Room detection dataset\n")
	fmt.Fprintf(&sb, "path: %s\n", c.outDir)
	sb.WriteString("train: images/train\nval: images/val\ntest: images/test\n\n")
	fmt.Fprintf(&sb, "nc: %d\n", len(classNames))
	fmt.Fprintf(&sb, "names: [%s]\n", strings.Join(classNames, ", "))

	path := filepath.Join(c.outDir, "dataset.yaml")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("writing dataset.yaml: %w", err)
	}
	return nil
}

func validSplit(split string) bool {
	for _, s := range datasetSplits {
		if s == split {
			return true
		}
	}
	return false
}
