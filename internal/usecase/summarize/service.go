// Package summarize produces the optional conversational wrap-up of a
// validated product set. Best-effort: it never fails a request.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
)

// Fallback is returned when the summary model is unavailable; the product list
// is still delivered.
const Fallback = "Found some options for you, take a look!"

const resultsPromptTemplate = `You are a helpful shopping assistant. Summarize the search results in a
natural, conversational way. Include key details like price ranges if
available, and notable brands or features. Avoid any negative language when
describing the products.

Do not list the number of products you are showing. Mention that you have
found a few options you think will work, encourage the user to look at the
products and see if they like any of them, and say there are more options
if they want to see more.

Here is the search query: %s

Here are the matching products:
%s

Please provide a natural language summary of these results.`

const emptyPromptTemplate = `You are a helpful shopping assistant. A search for the query below found
no matching products. Do not apologize at length. Briefly suggest two or
three ways the user could rephrase or broaden the query to get results,
grounded in the query itself.

Here is the search query: %s`

// Completer issues a plain chat completion.
type Completer interface {
	Complete(ctx context.Context, component, system string) (string, error)
}

// Service is the response summarizer.
type Service struct {
	llm    Completer
	logger *zap.Logger
}

// New creates a summarization service.
func New(llm Completer, logger *zap.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Summarize returns a conversational description of the validated products,
// or refinement suggestions when none survived. On upstream failure it returns
// Fallback instead of an error.
func (s *Service) Summarize(ctx context.Context, query string, validated []domain.Product) string {
	var prompt string
	if len(validated) == 0 {
		prompt = fmt.Sprintf(emptyPromptTemplate, query)
	} else {
		prompt = fmt.Sprintf(resultsPromptTemplate, query, renderProducts(validated))
	}

	text, err := s.llm.Complete(ctx, "summarize", prompt)
	if err != nil {
		s.logger.Warn("summary generation failed, using fallback",
			zap.String("query", query),
			zap.Error(err),
		)
		return Fallback
	}
	if strings.TrimSpace(text) == "" {
		return Fallback
	}
	return text
}

// renderProducts writes the validated set as a plain-text table for the prompt.
func renderProducts(products []domain.Product) string {
	var b strings.Builder
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s - $%.2f, rating %.1f (%d reviews), store: %s\n",
			i+1, p.Title, p.Price, p.AverageRating, p.RatingNumber, p.Store)
	}
	return b.String()
}
