package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/flight.dashboard/internal/httputil"
	"github.com/banshee-data/flight.dashboard/internal/telemetry"
)

var (
	// ErrFetchFailed marks a cycle that produced no usable feed response:
	// transport errors and non-2xx statuses.
	ErrFetchFailed = errors.New("feed fetch failed")
	// ErrMalformedEnvelope marks a response body that is not a decodable
	// JSON array. It wraps ErrFetchFailed.
	ErrMalformedEnvelope = fmt.Errorf("%w: malformed envelope", ErrFetchFailed)
)

// maxFeedBytes caps the response body read from the feed.
const maxFeedBytes = 16 << 20

// FeedFetcher retrieves the feed's current cumulative history as raw
// decoded records.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]any, error)
}

// HTTPFeed fetches the feed with a GET over an HTTPClient.
type HTTPFeed struct {
	url     string
	client  httputil.HTTPClient
	timeout time.Duration
}

// NewHTTPFeed returns a feed for url. A zero timeout means no per-request
// timeout beyond the caller's context.
func NewHTTPFeed(url string, client httputil.HTTPClient, timeout time.Duration) *HTTPFeed {
	return &HTTPFeed{url: url, client: client, timeout: timeout}
}

// URL returns the feed endpoint.
func (f *HTTPFeed) URL() string {
	return f.url
}

// Fetch performs one GET and decodes the body as an array of records.
func (f *HTTPFeed) Fetch(ctx context.Context) ([]any, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetchFailed, resp.Status)
	}

	records, err := telemetry.DecodeFeed(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return records, nil
}
