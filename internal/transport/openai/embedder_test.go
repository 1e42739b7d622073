package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

// embeddingResponse mirrors the OpenAI-compatible embedding response body.
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var resp embeddingResponse
		resp.Object = "list"
		resp.Model = "test-model"
		// Deliberately answer out of input order; Embed must re-slot by index.
		for i := len(vectors) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Object: "embedding", Embedding: vectors[i], Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedder_Embed_PreservesOrder(t *testing.T) {
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}}
	server := embeddingServer(t, vectors)
	defer server.Close()

	e := NewEmbedder(NewClient("test-key", server.URL), "test-model", 0, testPolicy(), zap.NewNop())

	got, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(got))
	}
	for i := range vectors {
		for j := range vectors[i] {
			if got[i][j] != vectors[i][j] {
				t.Fatalf("vector %d mismatch: %v vs %v", i, got[i], vectors[i])
			}
		}
	}
}

func TestEmbedder_Embed_EmptyInput(t *testing.T) {
	e := NewEmbedder(NewClient("test-key", "http://127.0.0.1:1"), "test-model", 0, testPolicy(), zap.NewNop())

	got, err := e.Embed(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("empty input should be a no-op, got %v, %v", got, err)
	}
}

func TestEmbedder_Embed_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var resp embeddingResponse
		resp.Data = append(resp.Data, struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Object: "embedding", Embedding: []float32{0.1}, Index: 0})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewEmbedder(NewClient("test-key", server.URL), "test-model", 0, testPolicy(), zap.NewNop())

	if _, err := e.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestEmbedder_Embed_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewEmbedder(NewClient("test-key", server.URL), "test-model", 0, testPolicy(), zap.NewNop())

	_, err := e.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestEmbedder_Embed_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	e := NewEmbedder(NewClient("test-key", server.URL), "test-model", 0, testPolicy(), zap.NewNop())

	_, err := e.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt for 401, got %d", got)
	}
}

func TestEmbedder_Embed_CountMismatch(t *testing.T) {
	server := embeddingServer(t, [][]float32{{0.1}})
	defer server.Close()

	e := NewEmbedder(NewClient("test-key", server.URL), "test-model", 0, testPolicy(), zap.NewNop())

	_, err := e.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
