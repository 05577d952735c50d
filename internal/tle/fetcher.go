package tle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxBodyBytes bounds a single catalog download.
const maxBodyBytes = 50 << 20

// ErrNotModified is returned by Fetch when the server reports that the
// catalog has not changed since the time given.
var ErrNotModified = errors.New("catalog not modified")

// Fetcher downloads one remote catalog.
type Fetcher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher for url. A non-positive timeout means 30s.
func NewFetcher(url string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// URL returns the catalog URL.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads the catalog. When since is non-zero it is sent as
// If-Modified-Since and a 304 answer yields ErrNotModified, which spares
// sources that rate-limit repeated downloads.
func (f *Fetcher) Fetch(ctx context.Context, since time.Time) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if !since.IsZero() {
		req.Header.Set("If-Modified-Since", since.UTC().Format(http.TimeFormat))
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return nil, ErrNotModified
	default:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, f.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", f.url, maxBodyBytes)
	}

	f.logger.Debug("fetched catalog",
		"url", f.url,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}
