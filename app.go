package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/disintegration/imaging"

	"github.com/mblanke/blueplan/plan"
)

// App encapsulates the application state and dependencies. Everything
// is constructed explicitly at startup and injected; there are no
// package-level instances.
type App struct {
	Config    *plan.Config
	Detector  plan.Detector
	Storage   *plan.StorageClient
	Queue     *plan.QueueClient
	Publisher *plan.ResultPublisher
	DB        *plan.AnnotationDB

	// CLI Flags (effectively dependencies)
	ConfigFile  string
	Profile     string
	ImageFile   string
	OutputFile  string
	OverlayFile string
	VectorFile  string
	GeoJSONFile string
	ImagesDir   string
	OutDir      string
	Workers     int
	DBDir       string
	SVGFile     string
	Split       string

	// Last detection, kept for the overlay debug endpoint.
	lastMu    sync.RWMutex
	lastImage image.Image
	lastRooms []plan.Room
}

// AppOptions carries parsed CLI flags into the App.
type AppOptions struct {
	ConfigFile  string
	Profile     string
	ImageFile   string
	OutputFile  string
	OverlayFile string
	VectorFile  string
	GeoJSONFile string
	ImagesDir   string
	OutDir      string
	Workers     int
	DBDir       string
	SVGFile     string
	Split       string
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.Profile = opts.Profile
	a.ImageFile = opts.ImageFile
	a.OutputFile = opts.OutputFile
	a.OverlayFile = opts.OverlayFile
	a.VectorFile = opts.VectorFile
	a.GeoJSONFile = opts.GeoJSONFile
	a.ImagesDir = opts.ImagesDir
	a.OutDir = opts.OutDir
	a.Workers = opts.Workers
	a.DBDir = opts.DBDir
	a.SVGFile = opts.SVGFile
	a.Split = opts.Split
}

// buildDetector picks the detection strategy from config: the learned
// model when an endpoint is configured, geometry otherwise.
func buildDetector(cfg *plan.Config) (plan.Detector, error) {
	if cfg.Model.Endpoint != "" {
		return plan.NewModelDetector(cfg.Model.Endpoint,
			plan.WithMinConfidence(cfg.Model.MinConfidence))
	}
	return plan.NewGeometryDetector(cfg.Detection)
}

// profileDetector builds a geometry detector for a named CLI profile.
func profileDetector(name string) (plan.Detector, error) {
	dc, err := plan.DetectionProfile(name)
	if err != nil {
		return nil, err
	}
	return plan.NewGeometryDetector(dc)
}

// RunDetect detects rooms on a single image and writes the result JSON
// plus any requested overlay, vector, or GeoJSON outputs.
func (a *App) RunDetect() {
	if a.ImageFile == "" {
		log.Fatal("-image is required for detect mode")
	}

	detector, err := profileDetector(a.Profile)
	if err != nil {
		log.Fatalf("Error building detector: %v", err)
	}

	img, err := plan.LoadImage(a.ImageFile)
	if err != nil {
		log.Fatalf("Error loading %s: %v", a.ImageFile, err)
	}

	rooms, err := detector.Detect(context.Background(), img)
	if err != nil {
		log.Fatalf("Detection failed: %v", err)
	}
	fmt.Printf("Detected %d room(s) in %s\n", len(rooms), a.ImageFile)
	for _, room := range rooms {
		fmt.Printf("  room %d: area=%.0f perimeter=%.1f vertices=%d confidence=%.2f\n",
			room.ID, room.Area, room.Perimeter, len(room.Polygon), room.Confidence)
	}

	data, err := json.MarshalIndent(rooms, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling rooms: %v", err)
	}
	if a.OutputFile == "" {
		fmt.Println(string(data))
	} else if err := os.WriteFile(a.OutputFile, data, 0644); err != nil {
		log.Fatalf("Error writing %s: %v", a.OutputFile, err)
	} else {
		fmt.Printf("Wrote rooms to %s\n", a.OutputFile)
	}

	if a.OverlayFile != "" {
		overlay := plan.RenderOverlay(img, rooms)
		if err := imaging.Save(overlay, a.OverlayFile); err != nil {
			log.Fatalf("Error writing overlay: %v", err)
		}
		fmt.Printf("Wrote overlay to %s\n", a.OverlayFile)
	}

	if a.VectorFile != "" {
		if err := a.writeVector(img, rooms); err != nil {
			log.Fatalf("Error writing vector output: %v", err)
		}
		fmt.Printf("Wrote vector output to %s\n", a.VectorFile)
	}

	if a.GeoJSONFile != "" {
		fc := plan.RoomsToGeoJSON(rooms)
		gj, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			log.Fatalf("Error marshaling GeoJSON: %v", err)
		}
		if err := os.WriteFile(a.GeoJSONFile, gj, 0644); err != nil {
			log.Fatalf("Error writing GeoJSON: %v", err)
		}
		fmt.Printf("Wrote GeoJSON to %s\n", a.GeoJSONFile)
	}
}

// writeVector renders rooms as SVG or PNG depending on the output
// file extension.
func (a *App) writeVector(img image.Image, rooms []plan.Room) error {
	b := img.Bounds()
	overlay := plan.NewVectorOverlay(b.Dx(), b.Dy(), rooms)

	f, err := os.Create(a.VectorFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", a.VectorFile, err)
	}
	defer f.Close()

	if filepath.Ext(a.VectorFile) == ".png" {
		return overlay.RenderToPNG(f)
	}
	return overlay.RenderToSVG(f)
}

// RunAnnotate batch-annotates a directory of floor plan images for
// semi-automated dataset labeling.
func (a *App) RunAnnotate() {
	if a.ImagesDir == "" {
		log.Fatal("-images is required for annotate mode")
	}
	if a.OutDir == "" {
		log.Fatal("-out is required for annotate mode")
	}

	detector, err := profileDetector(a.Profile)
	if err != nil {
		log.Fatalf("Error building detector: %v", err)
	}

	paths, err := plan.ListImages(a.ImagesDir)
	if err != nil {
		log.Fatalf("Error listing images: %v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("No images found in %s", a.ImagesDir)
	}

	opts := []plan.AnnotationOption{
		plan.WithWorkers(a.Workers),
		plan.WithProfileName(profileName(a.Profile)),
	}
	if a.DBDir != "" {
		db, err := plan.OpenAnnotationDB(a.DBDir)
		if err != nil {
			log.Fatalf("Error opening annotation index: %v", err)
		}
		defer db.Close()
		opts = append(opts, plan.WithAnnotationDB(db))
	}

	annotator := plan.NewAnnotator(detector, a.OutDir, opts...)
	results, err := annotator.Run(context.Background(), paths)
	if err != nil {
		log.Fatalf("Annotation batch failed: %v", err)
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Printf("Annotated %d image(s), %d failed\n", len(results)-failed, failed)
	fmt.Printf("Output written to %s\n", a.OutDir)
}

func profileName(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

// RunConvertSVG converts one SVG floor-plan annotation plus its image
// into YOLO training labels.
func (a *App) RunConvertSVG() {
	if a.SVGFile == "" || a.ImageFile == "" || a.OutDir == "" {
		log.Fatal("-svg, -image, and -out are required for convert-svg mode")
	}

	ann, err := plan.ParseSVGFile(a.SVGFile)
	if err != nil {
		log.Fatalf("Error parsing SVG: %v", err)
	}
	fmt.Printf("Parsed %d room(s) from %s\n", len(ann.Rooms), a.SVGFile)

	converter, err := plan.NewYOLOConverter(a.OutDir)
	if err != nil {
		log.Fatalf("Error creating dataset layout: %v", err)
	}

	if err := converter.ProcessSample(a.ImageFile, ann, a.Split); err != nil {
		log.Fatalf("Error converting sample: %v", err)
	}
	if err := converter.WriteDatasetYAML(plan.RoomCategories); err != nil {
		log.Fatalf("Error writing dataset manifest: %v", err)
	}
	fmt.Printf("Wrote %s sample for %s to %s\n", a.Split, ann.ImageID, a.OutDir)
}

// RunServe starts the HTTP inference service.
func (a *App) RunServe() {
	cfg, err := plan.LoadConfig(a.ConfigFile)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	a.Config = cfg

	a.Detector, err = buildDetector(cfg)
	if err != nil {
		log.Fatalf("Error building detector: %v", err)
	}
	if cfg.Storage.BaseURL != "" {
		a.Storage, err = plan.NewStorageClient(cfg.Storage.BaseURL)
		if err != nil {
			log.Fatalf("Error creating storage client: %v", err)
		}
	}

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: newHTTPServer(a),
	}

	go func() {
		log.Printf("HTTP server starting on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("Shutdown complete")
}

// RunWorker starts the MQTT job queue worker.
func (a *App) RunWorker() {
	cfg, err := plan.LoadConfig(a.ConfigFile)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if cfg.MQTT.Broker == "" {
		log.Fatal("mqtt.broker must be configured for worker mode")
	}
	a.Config = cfg

	a.Detector, err = buildDetector(cfg)
	if err != nil {
		log.Fatalf("Error building detector: %v", err)
	}
	if cfg.Storage.BaseURL == "" {
		log.Fatal("storage.baseUrl must be configured for worker mode")
	}
	a.Storage, err = plan.NewStorageClient(cfg.Storage.BaseURL)
	if err != nil {
		log.Fatalf("Error creating storage client: %v", err)
	}

	a.Queue, err = plan.NewQueueClient(cfg.MQTT, a.handleJob)
	if err != nil {
		log.Fatalf("Error creating queue client: %v", err)
	}
	a.Publisher = plan.NewResultPublisher(a.Queue.Client(), cfg.MQTT.ResultTopic)

	if err := a.Queue.Connect(); err != nil {
		log.Fatalf("Error connecting to broker: %v", err)
	}
	log.Printf("Worker ready, waiting for jobs on %s", cfg.MQTT.JobTopic)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	a.Queue.Disconnect()
	log.Println("Shutdown complete")
}

// handleJob processes one queued detection job end to end: fetch the
// image from storage, run detection, publish the result. Every failure
// is published against the job's request id so callers always see an
// outcome.
func (a *App) handleJob(job plan.DetectionJob, jobErr error) {
	if jobErr != nil {
		log.Printf("Rejecting job %q: %v", job.RequestID, jobErr)
		if job.RequestID != "" {
			a.publishError(job.RequestID, jobErr)
		}
		return
	}

	log.Printf("Processing job %s (%s/%s)", job.RequestID, job.Bucket, job.Key)
	ctx := context.Background()

	data, err := a.Storage.Fetch(ctx, job.Bucket, job.Key)
	if err != nil {
		a.publishError(job.RequestID, fmt.Errorf("fetching %s/%s: %w", job.Bucket, job.Key, err))
		return
	}

	img, err := plan.DecodeImage(data)
	if err != nil {
		a.publishError(job.RequestID, err)
		return
	}

	detector := a.Detector
	if job.Profile != "" {
		detector, err = profileDetector(job.Profile)
		if err != nil {
			a.publishError(job.RequestID, err)
			return
		}
	}

	rooms, err := detector.Detect(ctx, img)
	if err != nil {
		a.publishError(job.RequestID, err)
		return
	}

	a.setLastDetection(img, rooms)
	if err := a.Publisher.PublishRooms(job.RequestID, rooms, plan.Shape(img)); err != nil {
		log.Printf("Error publishing result for %s: %v", job.RequestID, err)
		return
	}
	log.Printf("Job %s complete: %d room(s)", job.RequestID, len(rooms))
}

func (a *App) publishError(requestID string, err error) {
	log.Printf("Job %s failed: %v", requestID, err)
	if pubErr := a.Publisher.PublishError(requestID, err); pubErr != nil {
		log.Printf("Error publishing failure for %s: %v", requestID, pubErr)
	}
}

// setLastDetection records the most recent detection for the overlay
// debug endpoint.
func (a *App) setLastDetection(img image.Image, rooms []plan.Room) {
	a.lastMu.Lock()
	a.lastImage = img
	a.lastRooms = rooms
	a.lastMu.Unlock()
}

func (a *App) lastDetection() (image.Image, []plan.Room) {
	a.lastMu.RLock()
	defer a.lastMu.RUnlock()
	return a.lastImage, a.lastRooms
}
