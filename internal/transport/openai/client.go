// Package openai wraps the shared model provider client: batch embeddings,
// structured chat completions, and vision-based classification.
package openai

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/metrics"
	"github.com/fitpick/fitpick/internal/retry"
)

// NewClient builds the process-wide OpenAI-compatible client. It is
// constructed once at startup and shared by every component for connection
// reuse.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// classifyErr wraps a provider error for the retry loop. Client errors other
// than 408/429 are permanent; everything else is worth retrying.
func classifyErr(err error) error {
	wrapped := describeAPIError(err)

	var status int
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status >= 400 && status < 500 &&
		status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

// describeAPIError extracts a human-readable error from the API response. All
// errors wrap domain.ErrUpstreamUnavailable for uniform 503 mapping.
func describeAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("api error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, domain.ErrUpstreamUnavailable)
		}
		return fmt.Errorf("api error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrUpstreamUnavailable)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("api error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrUpstreamUnavailable)
	}

	return fmt.Errorf("request failed: %w: %w", domain.ErrUpstreamUnavailable, err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// observe records transport metrics for one provider attempt.
func observe(component, model string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(component, model, status).Inc()
	metrics.UpstreamRequestDuration.WithLabelValues(component, model).Observe(time.Since(start).Seconds())
}
