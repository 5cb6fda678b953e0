package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// DefaultInferTimeout is the default HTTP timeout for one
	// inference round trip.
	DefaultInferTimeout = 30 * time.Second

	// DefaultInferRetries is the default number of attempts.
	DefaultInferRetries = 3

	// defaultInferBackoff is the base delay for exponential backoff.
	defaultInferBackoff = 500 * time.Millisecond

	// maxInferResponseBytes limits the response body to 10 MB.
	maxInferResponseBytes = 10 << 20

	// modelCoordScale is the fixed grid the model normalizes boxes to.
	modelCoordScale = 1000.0
)

// ModelOption configures a ModelDetector.
type ModelOption func(*ModelDetector)

// WithInferTimeout sets the HTTP request timeout.
func WithInferTimeout(d time.Duration) ModelOption {
	return func(m *ModelDetector) {
		m.timeout = d
	}
}

// WithInferRetries sets the maximum number of attempts. Values below
// 1 are ignored; at least one attempt is always made.
func WithInferRetries(n int) ModelOption {
	return func(m *ModelDetector) {
		if n > 0 {
			m.maxRetries = n
		}
	}
}

// WithInferClient overrides the default HTTP client (useful for testing).
func WithInferClient(client *http.Client) ModelOption {
	return func(m *ModelDetector) {
		m.client = client
	}
}

// WithMinConfidence drops model predictions below the given confidence.
func WithMinConfidence(c float64) ModelOption {
	return func(m *ModelDetector) {
		m.minConfidence = c
	}
}

// ModelDetector is the learned-model strategy: it posts the encoded
// image to a remote inference endpoint and maps the response into
// canonical Rooms. Predictions carry only a bounding box, so the
// polygon is the box's four corners and room_type comes from the
// model's name hint.
type ModelDetector struct {
	endpoint      string
	timeout       time.Duration
	maxRetries    int
	baseBackoff   time.Duration
	minConfidence float64
	client        *http.Client
}

// NewModelDetector returns a detector bound to an inference endpoint.
func NewModelDetector(endpoint string, opts ...ModelOption) (*ModelDetector, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("model detector: endpoint is empty")
	}

	m := &ModelDetector{
		endpoint:    endpoint,
		timeout:     DefaultInferTimeout,
		maxRetries:  DefaultInferRetries,
		baseBackoff: defaultInferBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil {
		m.client = &http.Client{Timeout: m.timeout}
	}
	return m, nil
}

// modelPrediction is one box in the inference response. Coordinates
// are normalized to a 0-1000 grid regardless of image size.
type modelPrediction struct {
	BoundingBox struct {
		XMin float64 `json:"x_min"`
		YMin float64 `json:"y_min"`
		XMax float64 `json:"x_max"`
		YMax float64 `json:"y_max"`
	} `json:"bounding_box"`
	NameHint   string  `json:"name_hint"`
	Confidence float64 `json:"confidence"`
}

type modelResponse struct {
	Rooms []modelPrediction `json:"rooms"`
}

// Detect encodes the image as PNG, posts it to the endpoint with
// retry, and maps predictions to Rooms ranked by descending box area.
func (m *ModelDetector) Detect(ctx context.Context, img image.Image) ([]Room, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-size image %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding image for inference: %w", err)
	}

	body, err := m.post(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}

	var resp modelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing inference response: %w", err)
	}

	return m.toRooms(resp.Rooms, b.Dx(), b.Dy()), nil
}

// post sends the PNG bytes with exponential-backoff retry on transient
// failures. Non-200 responses and network errors are retried; context
// cancellation is not.
func (m *ModelDetector) post(ctx context.Context, png []byte) ([]byte, error) {
	var lastErr error
	for attempt := range m.maxRetries {
		if attempt > 0 {
			backoff := m.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("inference: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(png))
		if err != nil {
			return nil, fmt.Errorf("creating inference request: %w", err)
		}
		req.Header.Set("Content-Type", "image/png")
		req.Header.Set("Accept", "application/json")

		resp, err := m.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP POST %s: %w", m.endpoint, err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxInferResponseBytes))
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("HTTP POST %s: status %d", m.endpoint, resp.StatusCode)
			continue
		}
		if readErr != nil {
			lastErr = fmt.Errorf("reading inference response: %w", readErr)
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("inference: all %d attempts failed: %w", m.maxRetries, lastErr)
}

// toRooms scales predictions to pixel coordinates and assembles
// canonical Rooms. Boxes are clamped to the image before conversion.
func (m *ModelDetector) toRooms(preds []modelPrediction, width, height int) []Room {
	rooms := make([]Room, 0, len(preds))
	for _, p := range preds {
		if p.Confidence < m.minConfidence {
			continue
		}

		bb := BoundingBox{
			XMin: clampInt(int(math.Round(p.BoundingBox.XMin/modelCoordScale*float64(width))), 0, width),
			YMin: clampInt(int(math.Round(p.BoundingBox.YMin/modelCoordScale*float64(height))), 0, height),
			XMax: clampInt(int(math.Round(p.BoundingBox.XMax/modelCoordScale*float64(width))), 0, width),
			YMax: clampInt(int(math.Round(p.BoundingBox.YMax/modelCoordScale*float64(height))), 0, height),
		}
		if bb.Area() <= 0 {
			continue
		}

		poly := Polygon{
			{bb.XMin, bb.YMin},
			{bb.XMax, bb.YMin},
			{bb.XMax, bb.YMax},
			{bb.XMin, bb.YMax},
		}

		roomType := p.NameHint
		if roomType == "" {
			roomType = DefaultRoomType
		}

		rooms = append(rooms, Room{
			Polygon:     poly,
			Lines:       EdgeList(poly),
			Area:        bb.Area(),
			Perimeter:   poly.Perimeter(),
			BoundingBox: bb,
			Confidence:  clamp01(p.Confidence),
			RoomType:    roomType,
		})
	}

	RankRooms(rooms)
	return rooms
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
