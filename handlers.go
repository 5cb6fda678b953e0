package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mblanke/blueplan/plan"
)

// maxUploadBytes caps direct image uploads on /invocations.
const maxUploadBytes = 50 * 1024 * 1024

// invocationRequest is the JSON body of a storage-backed invocation.
type invocationRequest struct {
	Bucket   string            `json:"bucket"`
	Key      string            `json:"key"`
	Profile  string            `json:"profile,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// invocationResponse is the success payload of /invocations.
type invocationResponse struct {
	Status     string            `json:"status"`
	RoomCount  int               `json:"room_count"`
	Rooms      []plan.Room       `json:"rooms"`
	ImageShape plan.ImageShape   `json:"image_shape"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		if app.Detector == nil {
			http.Error(w, "Detector not ready", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
		}{
			Status:    "healthy",
			Timestamp: time.Now(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Inference endpoint. Accepts either a JSON bucket/key reference or
	// raw PNG/JPEG bytes, dispatched on Content-Type.
	mux.HandleFunc("/invocations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if app.Detector == nil {
			http.Error(w, "Detector not ready", http.StatusServiceUnavailable)
			return
		}

		contentType := r.Header.Get("Content-Type")
		var (
			imageData []byte
			req       invocationRequest
			err       error
		)

		switch {
		case strings.HasPrefix(contentType, "application/json"):
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
				http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
				return
			}
			if req.Bucket == "" || req.Key == "" {
				http.Error(w, "bucket and key are required", http.StatusBadRequest)
				return
			}
			if app.Storage == nil {
				http.Error(w, "Storage not configured", http.StatusServiceUnavailable)
				return
			}
			imageData, err = app.Storage.Fetch(r.Context(), req.Bucket, req.Key)
			if err != nil {
				log.Printf("Error fetching %s/%s: %v", req.Bucket, req.Key, err)
				http.Error(w, "Failed to fetch image from storage", http.StatusBadGateway)
				return
			}

		case strings.HasPrefix(contentType, "image/png"), strings.HasPrefix(contentType, "image/jpeg"):
			imageData, err = io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
			if err != nil {
				http.Error(w, "Failed to read request body", http.StatusBadRequest)
				return
			}

		default:
			http.Error(w, fmt.Sprintf("Unsupported Content-Type %q", contentType), http.StatusUnsupportedMediaType)
			return
		}

		img, err := plan.DecodeImage(imageData)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid image: %v", err), http.StatusBadRequest)
			return
		}

		detector := app.Detector
		if req.Profile != "" {
			detector, err = profileDetector(req.Profile)
			if err != nil {
				http.Error(w, fmt.Sprintf("Unknown profile: %v", err), http.StatusBadRequest)
				return
			}
		}

		rooms, err := detector.Detect(r.Context(), img)
		if err != nil {
			if errors.Is(err, plan.ErrInvalidInput) {
				http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
				return
			}
			log.Printf("Detection error: %v", err)
			http.Error(w, "Detection failed", http.StatusInternalServerError)
			return
		}

		app.setLastDetection(img, rooms)

		w.Header().Set("Content-Type", "application/json")
		resp := invocationResponse{
			Status:     "success",
			RoomCount:  len(rooms),
			Rooms:      rooms,
			ImageShape: plan.Shape(img),
			Metadata:   req.Metadata,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error encoding invocation response: %v", err)
		}
	})

	// Overlay of the most recent detection, for eyeballing results.
	mux.HandleFunc("/overlay.png", func(w http.ResponseWriter, r *http.Request) {
		img, rooms := app.lastDetection()
		if img == nil {
			http.Error(w, "No detection available", http.StatusServiceUnavailable)
			return
		}

		overlay := plan.RenderOverlay(img, rooms)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, overlay); err != nil {
			log.Printf("Error encoding overlay PNG: %v", err)
		}
	})

	// Root endpoint with basic usage info
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html>
<head><title>blueplan</title></head>
<body>
<h1>blueplan room detection</h1>
<ul>
<li><a href="/ping">/ping</a> - health check</li>
<li>POST /invocations - detect rooms (JSON bucket/key or raw PNG/JPEG body)</li>
<li><a href="/overlay.png">/overlay.png</a> - overlay of the last detection</li>
</ul>
</body>
</html>`)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}
