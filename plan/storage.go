package plan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultStorageTimeout is the default HTTP request timeout for
	// object fetches and puts.
	DefaultStorageTimeout = 30 * time.Second

	// DefaultStorageRetries is the default number of attempts.
	DefaultStorageRetries = 3

	// defaultStorageBackoff is the base delay for exponential backoff.
	defaultStorageBackoff = 500 * time.Millisecond

	// maxObjectBytes limits fetched objects to 50 MB to prevent OOM.
	maxObjectBytes = 50 << 20
)

// StorageOption configures a StorageClient.
type StorageOption func(*StorageClient)

// WithStorageTimeout sets the HTTP request timeout.
func WithStorageTimeout(d time.Duration) StorageOption {
	return func(s *StorageClient) {
		s.timeout = d
	}
}

// WithStorageRetries sets the maximum number of attempts. Values below
// 1 are ignored; at least one attempt is always made.
func WithStorageRetries(n int) StorageOption {
	return func(s *StorageClient) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithStorageBackoff sets the base delay for exponential backoff.
func WithStorageBackoff(d time.Duration) StorageOption {
	return func(s *StorageClient) {
		s.baseBackoff = d
	}
}

// WithStorageHTTPClient overrides the default HTTP client (useful for
// testing).
func WithStorageHTTPClient(client *http.Client) StorageOption {
	return func(s *StorageClient) {
		s.client = client
	}
}

// StorageClient fetches and stores objects addressed by bucket and key
// over plain HTTP. Objects resolve to <baseURL>/<bucket>/<key>.
// Transient failures are retried with exponential backoff.
type StorageClient struct {
	baseURL     string
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

// NewStorageClient returns a client rooted at the given base URL.
func NewStorageClient(baseURL string, opts ...StorageOption) (*StorageClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("storage: base URL is empty")
	}

	s := &StorageClient{
		baseURL:     baseURL,
		timeout:     DefaultStorageTimeout,
		maxRetries:  DefaultStorageRetries,
		baseBackoff: defaultStorageBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}
	return s, nil
}

// objectURL builds the full object URL with path segments escaped.
func (s *StorageClient) objectURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s",
		s.baseURL, url.PathEscape(bucket), (&url.URL{Path: key}).EscapedPath())
}

// Fetch retrieves an object's bytes.
func (s *StorageClient) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("storage fetch: bucket and key are required")
	}

	objURL := s.objectURL(bucket, key)

	var lastErr error
	for attempt := range s.maxRetries {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, fmt.Errorf("storage fetch: %w", err)
			}
		}

		body, err := s.doGet(ctx, objURL)
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("storage fetch: all %d attempts failed: %w", s.maxRetries, lastErr)
}

// Put stores an object's bytes under the given bucket and key.
func (s *StorageClient) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("storage put: bucket and key are required")
	}

	objURL := s.objectURL(bucket, key)

	var lastErr error
	for attempt := range s.maxRetries {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return fmt.Errorf("storage put: %w", err)
			}
		}

		if err := s.doPut(ctx, objURL, data, contentType); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("storage put: all %d attempts failed: %w", s.maxRetries, lastErr)
}

// backoff sleeps for the exponential backoff of the given attempt,
// aborting early on context cancellation.
func (s *StorageClient) backoff(ctx context.Context, attempt int) error {
	delay := s.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// doGet performs a single HTTP GET and returns the response body bytes.
func (s *StorageClient) doGet(ctx context.Context, objURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, objURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", objURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP GET %s: status %d", objURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", objURL, err)
	}

	return body, nil
}

// doPut performs a single HTTP PUT.
func (s *StorageClient) doPut(ctx context.Context, objURL string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, objURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP PUT %s: %w", objURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("HTTP PUT %s: status %d", objURL, resp.StatusCode)
	}

	return nil
}
