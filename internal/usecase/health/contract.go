package health

import "context"

// CatalogChecker checks product catalog readiness.
type CatalogChecker interface {
	Ready(ctx context.Context) error
}

// EmbeddingChecker checks model provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
