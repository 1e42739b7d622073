package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/retry"
)

const embedComponent = "embedding"

// Embedder turns batches of text into embedding vectors via the shared client.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	retry      retry.Policy
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder. dimensions 0 keeps the model default.
func NewEmbedder(client *openai.Client, model string, dimensions int, policy retry.Policy, logger *zap.Logger) *Embedder {
	return &Embedder{
		client:     client,
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
		retry:      policy,
		logger:     logger,
	}
}

// Embed returns one vector per input text, in input order. A provider failure
// fails the whole batch; there are no partial results.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	var resp openai.EmbeddingResponse
	err := e.retry.Do(ctx, e.logger, "create_embeddings", func(ctx context.Context) error {
		start := time.Now()
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, req)
		observe(embedComponent, string(e.model), start, callErr)
		if callErr != nil {
			return classifyErr(callErr)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			err = fmt.Errorf("create embeddings: %w: %w", domain.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			domain.ErrMalformedResponse, len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrMalformedResponse, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: missing embedding for input %d", domain.ErrMalformedResponse, i)
		}
	}
	return vectors, nil
}

// HealthCheck verifies provider availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
