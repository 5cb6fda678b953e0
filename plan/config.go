package plan

import "fmt"

// DetectionConfig holds the tunable thresholds of the geometry
// detection pipeline. Construct once, validate, and share read-only
// across concurrent detection calls.
type DetectionConfig struct {
	// MinArea and MaxArea bound the raw contour area in square pixels.
	// A contour with area exactly MinArea is kept.
	MinArea float64 `yaml:"minArea" json:"minArea"`
	MaxArea float64 `yaml:"maxArea" json:"maxArea"`

	// EpsilonFactor scales the simplification tolerance: epsilon is
	// EpsilonFactor times the raw contour perimeter.
	EpsilonFactor float64 `yaml:"epsilonFactor" json:"epsilonFactor"`

	// MinVertices and MaxVertices bound the simplified polygon
	// complexity. Candidates outside the band are dropped.
	MinVertices int `yaml:"minVertices" json:"minVertices"`
	MaxVertices int `yaml:"maxVertices" json:"maxVertices"`

	// AspectRatioLimit rejects elongated contours whose bounding box
	// aspect ratio exceeds it (line artifacts, wall slivers).
	AspectRatioLimit float64 `yaml:"aspectRatioLimit" json:"aspectRatioLimit"`

	// LineThickness is the expected wall stroke width in pixels. It
	// sizes the morphological structuring element and the blur radius.
	LineThickness int `yaml:"lineThickness" json:"lineThickness"`
}

// DefaultDetectionConfig returns the standard profile tuned for
// residential floor plans around 1000x1000 pixels.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		MinArea:          1000,
		MaxArea:          1000000,
		EpsilonFactor:    0.01,
		MinVertices:      4,
		MaxVertices:      50,
		AspectRatioLimit: 10,
		LineThickness:    3,
	}
}

// StrictDetectionConfig returns a profile with tighter shape
// requirements, useful for clean CAD-derived plans where noise
// tolerance is not needed.
func StrictDetectionConfig() DetectionConfig {
	return DetectionConfig{
		MinArea:          2000,
		MaxArea:          500000,
		EpsilonFactor:    0.02,
		MinVertices:      4,
		MaxVertices:      20,
		AspectRatioLimit: 5,
		LineThickness:    3,
	}
}

// DetectionProfile returns the named configuration profile.
// Known profiles: "default", "strict". An empty name maps to "default".
func DetectionProfile(name string) (DetectionConfig, error) {
	switch name {
	case "", "default":
		return DefaultDetectionConfig(), nil
	case "strict":
		return StrictDetectionConfig(), nil
	default:
		return DetectionConfig{}, fmt.Errorf("unknown detection profile %q", name)
	}
}

// Validate checks the config invariants. It is called at construction
// so invalid combinations fail fast instead of deep inside detection.
func (c DetectionConfig) Validate() error {
	if c.MinArea <= 0 {
		return fmt.Errorf("minArea must be > 0, got %g", c.MinArea)
	}
	if c.MaxArea <= 0 {
		return fmt.Errorf("maxArea must be > 0, got %g", c.MaxArea)
	}
	if c.MinArea > c.MaxArea {
		return fmt.Errorf("minArea (%g) exceeds maxArea (%g)", c.MinArea, c.MaxArea)
	}
	if c.EpsilonFactor <= 0 {
		return fmt.Errorf("epsilonFactor must be > 0, got %g", c.EpsilonFactor)
	}
	if c.MinVertices < 3 {
		return fmt.Errorf("minVertices must be >= 3, got %d", c.MinVertices)
	}
	if c.MinVertices > c.MaxVertices {
		return fmt.Errorf("minVertices (%d) exceeds maxVertices (%d)", c.MinVertices, c.MaxVertices)
	}
	if c.AspectRatioLimit <= 0 {
		return fmt.Errorf("aspectRatioLimit must be > 0, got %g", c.AspectRatioLimit)
	}
	if c.LineThickness <= 0 {
		return fmt.Errorf("lineThickness must be > 0, got %d", c.LineThickness)
	}
	return nil
}
