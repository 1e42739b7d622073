package validate

import (
	"context"

	"github.com/fitpick/fitpick/internal/domain"
)

// VisionCompleter issues a structured vision chat completion.
type VisionCompleter interface {
	CompleteVisionJSON(ctx context.Context, component, prompt, imageB64, schemaName string, out any) error
}

// ImageFetcher downloads and base64-encodes a thumbnail.
type ImageFetcher interface {
	FetchAndEncode(ctx context.Context, url string) (string, error)
}

// ProductValidator judges one candidate against the original query.
type ProductValidator interface {
	Validate(ctx context.Context, query string, product domain.Product) (bool, error)
}
