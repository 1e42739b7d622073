package recommend

import (
	"context"

	"github.com/fitpick/fitpick/internal/domain"
)

// Expander widens one query into related search phrases.
type Expander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}

// Embedder turns texts into vectors, order- and length-preserving.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever answers similarity queries over the product catalog.
type Retriever interface {
	FindSimilar(ctx context.Context, queryVectors [][]float32, topK int) ([]domain.Product, error)
}

// ValidatorPool validates candidates concurrently, preserving their order.
type ValidatorPool interface {
	ValidateAll(ctx context.Context, query string, candidates []domain.Product) ([]domain.Product, error)
}

// Summarizer produces the optional conversational response. Best-effort.
type Summarizer interface {
	Summarize(ctx context.Context, query string, validated []domain.Product) string
}
