package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Source supplies the raw catalog document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Name() string
}

// NewSource picks an HTTP source for http(s) locations and a file source
// otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location)
	}
	return FileSource{Path: location}
}

// FileSource reads the catalog from disk.
type FileSource struct {
	Path string
}

// Fetch reads the file.
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path)
}

// Name returns the file path.
func (s FileSource) Name() string {
	return s.Path
}

// HTTPSource fetches the catalog over HTTP, always revalidating.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates a source with a 15 second timeout.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: 15 * time.Second}}
}

// Fetch GETs the catalog document.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// Name returns the URL.
func (s *HTTPSource) Name() string {
	return s.URL
}
