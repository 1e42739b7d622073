// Package expand widens one user query into related search phrases for
// retrieval, rejecting queries outside the fashion domain.
package expand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
)

// maxQueries caps how many expanded phrases one query may produce.
const maxQueries = 5

const systemPrompt = `You are a helpful assistant that expands shopping queries for a fashion
product search. Based on the user query, produce related search phrases that
widen the number of matching products. If the user asks for help with an
outfit, create phrases covering the individual garments it needs.

Example:

Query: "I need a suit for prom."

Expanded queries: ["Suit formal", "Dress pants", "Tie formal", "Dress shoes black"]

Your output is used for a similarity search over a fashion product catalog.
Return at most 5 expanded queries. If the query is not about fashion,
clothing, or outfits, return an empty list.`

// queryList is the structured expansion response.
type queryList struct {
	Queries []string `json:"queries"`
}

// Service is the query expander.
type Service struct {
	llm    StructuredCompleter
	logger *zap.Logger
}

// New creates an expansion service.
func New(llm StructuredCompleter, logger *zap.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Expand returns up to 5 related search phrases for query. An empty result
// means the query is out of domain and the pipeline must stop. Malformed model
// output degrades to an empty result; provider exhaustion is returned as
// domain.ErrUpstreamUnavailable.
func (s *Service) Expand(ctx context.Context, query string) ([]string, error) {
	var out queryList
	err := s.llm.CompleteJSON(ctx, "expand", systemPrompt, query, "expanded_queries", &out)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedResponse) {
			s.logger.Warn("expansion output did not parse, treating query as out of domain",
				zap.String("query", query),
				zap.Error(err),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("expand query: %w", err)
	}

	queries := out.Queries
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries, nil
}

// OutOfDomain reports whether an expansion result signals a non-fashion query:
// no phrases at all, or nothing but blank strings.
func OutOfDomain(queries []string) bool {
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			return false
		}
	}
	return true
}
