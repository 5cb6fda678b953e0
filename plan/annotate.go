package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// RoomCategories is the fixed category list written into generated
// datasets. Index order matches the label class ids used by the
// converters.
var RoomCategories = []string{
	"Bedroom", "LivingRoom", "Kitchen", "Bathroom", "Dining",
	"Entry", "Closet", "Utility", "Outdoor", "Other",
}

// ImageAnnotation is the per-image annotation file content.
type ImageAnnotation struct {
	ImageID    string             `json:"image_id"`
	ImagePath  string             `json:"image_path"`
	ImageShape ImageShape         `json:"image_shape"`
	RoomCount  int                `json:"room_count"`
	Rooms      []Room             `json:"rooms"`
	Metadata   AnnotationMetadata `json:"metadata"`
}

// AnnotationMetadata records provenance for review tooling. Verified
// starts false; a human flips it after checking the annotation.
type AnnotationMetadata struct {
	AnnotatedBy    string `json:"annotated_by"`
	AnnotationDate string `json:"annotation_date"`
	Verified       bool   `json:"verified"`
	DetectorConfig string `json:"detector_config"`
}

// AnnotationResult is the per-item outcome of a batch run. A failed
// item carries its error here instead of aborting the batch.
type AnnotationResult struct {
	ImageID   string
	ImagePath string
	RoomCount int
	Err       error
}

// DatasetStatistics summarizes a completed batch.
type DatasetStatistics struct {
	TotalImages           int            `json:"total_images"`
	TotalRooms            int            `json:"total_rooms"`
	FailedImages          int            `json:"failed_images"`
	AvgRoomsPerImage      float64        `json:"avg_rooms_per_image"`
	RoomCountDistribution map[string]int `json:"room_count_distribution"`
}

// DatasetAnnotations is the aggregate dataset file written at the end
// of a batch run.
type DatasetAnnotations struct {
	Version     string            `json:"version"`
	DatasetInfo DatasetInfo       `json:"dataset_info"`
	Categories  []string          `json:"categories"`
	Annotations []ImageAnnotation `json:"annotations"`
	Statistics  DatasetStatistics `json:"statistics"`
}

// DatasetInfo describes the generated dataset.
type DatasetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// AnnotationOption configures an Annotator.
type AnnotationOption func(*Annotator)

// WithWorkers sets the maximum number of images annotated
// concurrently. Default is 4.
func WithWorkers(n int) AnnotationOption {
	return func(a *Annotator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithAnnotationDB records each result in a SQLite index alongside the
// JSON files.
func WithAnnotationDB(db *AnnotationDB) AnnotationOption {
	return func(a *Annotator) {
		a.db = db
	}
}

// WithProfileName records the detection profile name in annotation
// metadata.
func WithProfileName(name string) AnnotationOption {
	return func(a *Annotator) {
		a.profile = name
	}
}

// WithVisualizations toggles overlay PNG generation. Default on.
func WithVisualizations(enabled bool) AnnotationOption {
	return func(a *Annotator) {
		a.visualize = enabled
	}
}

// Annotator runs detection over an image set and writes annotation
// files for semi-automated labeling: one JSON and one visualization
// per image under the output directory, plus an aggregate dataset
// file. Each image is an independent unit of work; one failure never
// aborts the batch.
type Annotator struct {
	detector  Detector
	outDir    string
	workers   int
	profile   string
	visualize bool
	db        *AnnotationDB

	annotations []ImageAnnotation
	mu          sync.Mutex
}

// NewAnnotator creates an annotator writing under outDir.
func NewAnnotator(detector Detector, outDir string, opts ...AnnotationOption) *Annotator {
	a := &Annotator{
		detector:  detector,
		outDir:    outDir,
		workers:   4,
		profile:   "default",
		visualize: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run annotates every image path, bounded by the worker limit, and
// writes the aggregate dataset file when all items have settled.
// Results are returned in input order. The error return reports batch
// infrastructure failures (output dirs, dataset file, cancellation),
// not per-item ones.
func (a *Annotator) Run(ctx context.Context, imagePaths []string) ([]AnnotationResult, error) {
	if len(imagePaths) == 0 {
		return nil, fmt.Errorf("no images to annotate")
	}

	for _, sub := range []string{"individual", "visualizations"} {
		if err := os.MkdirAll(filepath.Join(a.outDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	log.Printf("Annotating %d images with %d workers", len(imagePaths), a.workers)
	start := time.Now()

	results := make([]AnnotationResult, len(imagePaths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, path := range imagePaths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			imageID := imageIDFromPath(path)
			ann, err := a.annotateOne(ctx, imageID, path)

			results[i] = AnnotationResult{ImageID: imageID, ImagePath: path}
			if err != nil {
				// Record the failure in the result, keep the batch going.
				results[i].Err = err
				log.Printf("Annotation failed for %s: %v", path, err)
			} else {
				results[i].RoomCount = ann.RoomCount
				a.mu.Lock()
				a.annotations = append(a.annotations, ann)
				a.mu.Unlock()
			}

			if a.db != nil {
				if dbErr := a.db.Record(ctx, results[i]); dbErr != nil {
					log.Printf("Recording annotation for %s: %v", imageID, dbErr)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	if err := a.writeDataset(results); err != nil {
		return results, err
	}

	log.Printf("Annotation batch complete: %d images in %v", len(imagePaths), time.Since(start))
	return results, nil
}

// annotateOne detects rooms on one image and writes its annotation
// JSON and visualization.
func (a *Annotator) annotateOne(ctx context.Context, imageID, path string) (ImageAnnotation, error) {
	img, err := LoadImage(path)
	if err != nil {
		return ImageAnnotation{}, err
	}

	rooms, err := a.detector.Detect(ctx, img)
	if err != nil {
		return ImageAnnotation{}, err
	}

	ann := ImageAnnotation{
		ImageID:    imageID,
		ImagePath:  path,
		ImageShape: Shape(img),
		RoomCount:  len(rooms),
		Rooms:      rooms,
		Metadata: AnnotationMetadata{
			AnnotatedBy:    "geometry_detector",
			AnnotationDate: time.Now().UTC().Format(time.RFC3339),
			Verified:       false,
			DetectorConfig: a.profile,
		},
	}

	data, err := json.MarshalIndent(ann, "", "  ")
	if err != nil {
		return ImageAnnotation{}, fmt.Errorf("marshaling annotation: %w", err)
	}

	annPath := filepath.Join(a.outDir, "individual", imageID+"_annotation.json")
	if err := os.WriteFile(annPath, data, 0644); err != nil {
		return ImageAnnotation{}, fmt.Errorf("writing annotation: %w", err)
	}

	if a.visualize {
		overlay := RenderOverlay(img, rooms)
		visPath := filepath.Join(a.outDir, "visualizations", imageID+"_annotated.png")
		if err := imaging.Save(overlay, visPath); err != nil {
			return ImageAnnotation{}, fmt.Errorf("writing visualization: %w", err)
		}
	}

	return ann, nil
}

// writeDataset aggregates all successful annotations plus batch
// statistics into dataset_annotations.json.
func (a *Annotator) writeDataset(results []AnnotationResult) error {
	a.mu.Lock()
	annotations := make([]ImageAnnotation, len(a.annotations))
	copy(annotations, a.annotations)
	a.mu.Unlock()

	// Deterministic file content regardless of completion order.
	sort.Slice(annotations, func(i, j int) bool {
		return annotations[i].ImageID < annotations[j].ImageID
	})

	stats := DatasetStatistics{
		TotalImages:           len(annotations),
		RoomCountDistribution: make(map[string]int),
	}
	for _, r := range results {
		if r.Err != nil {
			stats.FailedImages++
		}
	}
	for _, ann := range annotations {
		stats.TotalRooms += ann.RoomCount
		stats.RoomCountDistribution[strconv.Itoa(ann.RoomCount)]++
	}
	if stats.TotalImages > 0 {
		stats.AvgRoomsPerImage = float64(stats.TotalRooms) / float64(stats.TotalImages)
	}

	dataset := DatasetAnnotations{
		Version: "1.0",
		DatasetInfo: DatasetInfo{
			Name:        "room_boundaries",
			Description: "Auto-generated room boundary annotations for manual review",
			Created:     time.Now().UTC().Format(time.RFC3339),
		},
		Categories:  RoomCategories,
		Annotations: annotations,
		Statistics:  stats,
	}

	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dataset: %w", err)
	}

	path := filepath.Join(a.outDir, "dataset_annotations.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing dataset file: %w", err)
	}

	return nil
}

// ListImages returns the PNG/JPEG files directly under dir, sorted.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// imageIDFromPath derives the image id from the file name without
// extension.
func imageIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
