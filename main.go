package main

import (
	"flag"
	"fmt"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")

	detectMode   = flag.Bool("detect", false, "Detect rooms on a single image and exit")
	annotateMode = flag.Bool("annotate", false, "Batch-annotate a directory of images and exit")
	serveMode    = flag.Bool("serve", false, "Run the HTTP inference service")
	workerMode   = flag.Bool("worker", false, "Run the MQTT job queue worker")
	convertMode  = flag.Bool("convert-svg", false, "Convert an SVG annotation to YOLO labels and exit")
	showVersion  = flag.Bool("version", false, "Print version and exit")

	profileFlag = flag.String("profile", "default", "Detection profile: default or strict")
	imageFile   = flag.String("image", "", "Input image path (detect, convert-svg)")
	outputFile  = flag.String("out", "", "Output path: rooms JSON for -detect, directory for -annotate and -convert-svg")
	overlayFile = flag.String("overlay", "", "Write a raster overlay PNG of the detection")
	vectorFile  = flag.String("vector", "", "Write a vector overlay (.svg or .png)")
	geoJSONFile = flag.String("geojson", "", "Write the detection as GeoJSON")

	imagesDir = flag.String("images", "", "Image directory for -annotate")
	workers   = flag.Int("workers", 4, "Concurrent workers for -annotate")
	dbDir     = flag.String("db", "", "Directory for the SQLite annotation index (optional)")

	svgFile   = flag.String("svg", "", "SVG annotation file for -convert-svg")
	splitName = flag.String("split", "train", "Dataset split for -convert-svg: train, val, or test")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("blueplan version: %s\n", Version)
		return
	}

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:  *configFile,
		Profile:     *profileFlag,
		ImageFile:   *imageFile,
		OutputFile:  *outputFile,
		OverlayFile: *overlayFile,
		VectorFile:  *vectorFile,
		GeoJSONFile: *geoJSONFile,
		ImagesDir:   *imagesDir,
		OutDir:      *outputFile,
		Workers:     *workers,
		DBDir:       *dbDir,
		SVGFile:     *svgFile,
		Split:       *splitName,
	})

	switch {
	case *detectMode:
		app.RunDetect()
	case *annotateMode:
		app.RunAnnotate()
	case *convertMode:
		app.RunConvertSVG()
	case *serveMode:
		app.RunServe()
	case *workerMode:
		app.RunWorker()
	default:
		fmt.Printf("blueplan version: %s\n", Version)
		fmt.Println("Room boundary detection for raster floor plans")
		fmt.Println()
		fmt.Println("Modes:")
		fmt.Println("  -detect -image plan.png [-out rooms.json] [-overlay out.png] [-vector out.svg] [-geojson out.json]")
		fmt.Println("  -annotate -images DIR -out DIR [-workers N] [-db DIR]")
		fmt.Println("  -convert-svg -svg model.svg -image plan.png -out DIR [-split train|val|test]")
		fmt.Println("  -serve [-config config.yaml]")
		fmt.Println("  -worker [-config config.yaml]")
		fmt.Println()
		fmt.Println("Use -profile to select the default or strict detection profile.")
	}
}
