package land

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/litescript/ls-globe/internal/geo"
)

const (
	// DefaultURL is Natural Earth's 1:110m land polygons.
	DefaultURL = "https://raw.githubusercontent.com/nvkelso/natural-earth-vector/master/geojson/ne_110m_land.geojson"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes bounds the document size read from the network.
	maxBodyBytes = 32 << 20
)

// Fetcher downloads GeoJSON land data over HTTP.
type Fetcher struct {
	client       *http.Client
	url          string
	timeout      time.Duration
	targetPoints int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithURL sets the GeoJSON URL.
func WithURL(url string) FetcherOption {
	return func(f *Fetcher) {
		f.url = url
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTargetPoints sets the approximate vertex count per ring.
func WithTargetPoints(n int) FetcherOption {
	return func(f *Fetcher) {
		f.targetPoints = n
	}
}

// NewFetcher creates a land data fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		url:          DefaultURL,
		timeout:      DefaultTimeout,
		targetPoints: DefaultTargetPoints,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Timeout: f.timeout,
		}
	}

	return f
}

// FetchResult contains the result of a fetch operation.
type FetchResult struct {
	Rings     []geo.Ring
	Bytes     int
	FetchedAt time.Time
	Duration  time.Duration
	Error     error
}

// Fetch downloads and parses the land document.
func (f *Fetcher) Fetch(ctx context.Context) FetchResult {
	start := time.Now()
	result := FetchResult{
		FetchedAt: start,
	}

	raw, err := f.fetchRaw(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.Bytes = len(raw)

	rings, err := ParseGeoJSON(raw, f.targetPoints)
	if err != nil {
		result.Error = fmt.Errorf("parse land data: %w", err)
		return result
	}
	result.Rings = rings

	return result
}

// FetchLandRings implements Source.
func (f *Fetcher) FetchLandRings(ctx context.Context) ([]geo.Ring, error) {
	res := f.Fetch(ctx)
	return res.Rings, res.Error
}

// Kind names the source for logs and metrics.
func (f *Fetcher) Kind() string { return "http" }

func (f *Fetcher) fetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "ls-globe/1.0")
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch land data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// URL returns the configured document URL.
func (f *Fetcher) URL() string {
	return f.url
}
