// Package validate prunes false positives from similarity retrieval by showing
// each candidate's thumbnail to a vision model and asking whether it matches
// the original query.
package validate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
)

const promptTemplate = `You are a fashion expert analyzing a clothing item.
You will be shown an image of a clothing item and given a text query.
Evaluate if this item matches the description in the query.
If the user was specific about what they were looking for, make sure the item
matches that description. Example: if the user is looking for a "mens wedding
outfit", make sure the item is for an adult male and not a child. Account for
gender, formality, and event context, and for price if the query mentions one.

Respond with two fields:
- "answer": true or false, whether the item matches the query
- "reason": a concise explanation of your decision when the item matches.
  Leave blank when it does not.

Do not describe the item itself. Focus only on its relevance to the query.

<query>
%s
</query>

<product_title>
%s
</product_title>

<product_details>
price: $%.2f, average rating: %.1f (%d ratings)
</product_details>`

// verdict is the structured validation response.
type verdict struct {
	Answer bool   `json:"answer"`
	Reason string `json:"reason"`
}

// Validator judges one (query, product) pair at a time.
type Validator struct {
	llm    VisionCompleter
	images ImageFetcher
	logger *zap.Logger
}

// NewValidator creates a Validator.
func NewValidator(llm VisionCompleter, images ImageFetcher, logger *zap.Logger) *Validator {
	return &Validator{llm: llm, images: images, logger: logger}
}

// Validate fetches the product thumbnail and asks the vision model whether the
// product matches the query. Errors (image fetch, provider exhaustion) are
// candidate-scoped; callers exclude the product and move on.
func (v *Validator) Validate(ctx context.Context, query string, product domain.Product) (bool, error) {
	imageB64, err := v.images.FetchAndEncode(ctx, product.Thumbnail)
	if err != nil {
		return false, fmt.Errorf("thumbnail for %q: %w", product.Title, err)
	}

	prompt := fmt.Sprintf(promptTemplate,
		query, product.Title, product.Price, product.AverageRating, product.RatingNumber)

	var out verdict
	if err := v.llm.CompleteVisionJSON(ctx, "validate", prompt, imageB64, "product_verdict", &out); err != nil {
		return false, fmt.Errorf("validate %q: %w", product.Title, err)
	}

	if out.Answer {
		v.logger.Debug("product approved",
			zap.String("title", product.Title),
			zap.String("reason", out.Reason),
		)
	}
	return out.Answer, nil
}
