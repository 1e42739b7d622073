// Package imagefetch downloads product thumbnails and encodes them for vision
// model prompts.
package imagefetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fitpick/fitpick/internal/domain"
)

// Fetcher downloads images over HTTP. Safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Fetcher with a per-request timeout and a response size cap.
func New(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// FetchAndEncode downloads url and returns its body base64-encoded. All
// failures wrap domain.ErrImageFetch so callers can treat them as
// candidate-scoped.
func (f *Fetcher) FetchAndEncode(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request for %s: %w", domain.ErrImageFetch, url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %w", domain.ErrImageFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: get %s: status %d", domain.ErrImageFetch, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", domain.ErrImageFetch, url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrImageFetch, url, f.maxBytes)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("%w: %s returned an empty body", domain.ErrImageFetch, url)
	}

	return base64.StdEncoding.EncodeToString(body), nil
}
