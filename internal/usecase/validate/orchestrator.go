package validate

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/metrics"
)

// Orchestrator fans out per-candidate validations under a concurrency cap and
// fans the verdicts back in preserving candidate order.
type Orchestrator struct {
	validator   ProductValidator
	concurrency int64
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewOrchestrator creates an Orchestrator. concurrency bounds in-flight
// validations; callTimeout bounds one candidate's fetch+validate, retries
// included.
func NewOrchestrator(validator ProductValidator, concurrency int, callTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		validator:   validator,
		concurrency: int64(concurrency),
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// ValidateAll validates every candidate concurrently and returns the approved
// subset in the candidates' original order. A single candidate's failure
// excludes only that candidate. The returned error is non-nil only when ctx
// was cancelled before all candidates could be dispatched.
func (o *Orchestrator) ValidateAll(ctx context.Context, query string, candidates []domain.Product) ([]domain.Product, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	sem := semaphore.NewWeighted(o.concurrency)
	// Each task writes only its own slot; no locking needed at fan-in.
	approved := make([]bool, len(candidates))

	var dispatchErr error
	done := make(chan struct{}, len(candidates))
	dispatched := 0

	for i, p := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			dispatchErr = err
			break
		}
		dispatched++

		go func(idx int, product domain.Product) {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()

			callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
			defer cancel()

			ok, err := o.validator.Validate(callCtx, query, product)
			if err != nil {
				metrics.ValidationResultsTotal.WithLabelValues("failed").Inc()
				o.logger.Warn("excluding candidate after validation failure",
					zap.Int("index", idx),
					zap.String("title", product.Title),
					zap.Error(err),
				)
				return
			}
			if ok {
				metrics.ValidationResultsTotal.WithLabelValues("approved").Inc()
			} else {
				metrics.ValidationResultsTotal.WithLabelValues("rejected").Inc()
			}
			approved[idx] = ok
		}(i, p)
	}

	for i := 0; i < dispatched; i++ {
		<-done
	}

	if dispatchErr != nil {
		return nil, dispatchErr
	}

	var validated []domain.Product
	for i, ok := range approved {
		if ok {
			validated = append(validated, candidates[i])
		}
	}
	return validated, nil
}
