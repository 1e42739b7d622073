// Package recommend sequences the recommendation pipeline: expansion,
// embedding, retrieval, rating filter, concurrent validation, and the optional
// summary.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/metrics"
	"github.com/fitpick/fitpick/internal/usecase/expand"
)

// RejectionMessage is returned for queries the expander judges out of domain.
const RejectionMessage = "Sorry, I can only help with fashion and clothing searches. Try asking for an outfit, a garment, or an accessory."

// Service is the pipeline orchestrator.
type Service struct {
	expander   Expander
	embedder   Embedder
	retriever  Retriever
	validators ValidatorPool
	summarizer Summarizer
	minRating  float64
	topK       int
	logger     *zap.Logger
}

// New creates the pipeline service.
func New(
	expander Expander,
	embedder Embedder,
	retriever Retriever,
	validators ValidatorPool,
	summarizer Summarizer,
	minRating float64,
	topK int,
	logger *zap.Logger,
) *Service {
	return &Service{
		expander:   expander,
		embedder:   embedder,
		retriever:  retriever,
		validators: validators,
		summarizer: summarizer,
		minRating:  minRating,
		topK:       topK,
		logger:     logger,
	}
}

// Recommend runs the full pipeline for one query. withSummary controls the
// optional natural-language response; without it the response echoes the query.
func (s *Service) Recommend(ctx context.Context, query string, withSummary bool) (domain.Recommendation, error) {
	queries, err := s.expander.Expand(ctx, query)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("expanding: %w", err)
	}

	if expand.OutOfDomain(queries) {
		metrics.RejectedQueriesTotal.Inc()
		s.logger.Info("query rejected as out of domain", zap.String("query", query))
		return domain.Recommendation{Response: RejectionMessage}, nil
	}

	vectors, err := s.embedder.Embed(ctx, queries)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("embedding: %w", err)
	}

	candidates, err := s.retriever.FindSimilar(ctx, vectors, s.topK)
	if err != nil {
		if !errors.Is(err, domain.ErrRetrieval) {
			err = fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
		}
		return domain.Recommendation{}, fmt.Errorf("retrieving: %w", err)
	}

	// Rating filter runs before validation so low-rated candidates never cost
	// a vision call.
	filtered := candidates[:0:0]
	for _, c := range candidates {
		if c.AverageRating >= s.minRating {
			filtered = append(filtered, c)
		}
	}

	var validated []domain.Product
	if len(filtered) > 0 {
		validated, err = s.validators.ValidateAll(ctx, query, filtered)
		if err != nil {
			return domain.Recommendation{}, fmt.Errorf("validating: %w", err)
		}
	}

	s.logger.Info("pipeline completed",
		zap.String("query", query),
		zap.Int("expanded_queries", len(queries)),
		zap.Int("candidates", len(candidates)),
		zap.Int("after_rating_filter", len(filtered)),
		zap.Int("validated", len(validated)),
	)

	response := query
	if withSummary {
		response = s.summarizer.Summarize(ctx, query, validated)
	}

	return domain.Recommendation{Response: response, Products: validated}, nil
}
