// Package retry provides the bounded retry policy applied to every upstream
// model call.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Policy is a bounded exponential backoff with jitter. The zero value is not
// usable; fill all fields.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Do runs fn under the policy. It stops early when ctx is done or when fn
// returns an error wrapped by Permanent. Each retry is logged at warn level
// with the operation name.
func (p Policy) Do(ctx context.Context, log *zap.Logger, op string, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by attempts, not wall clock

	attempt := 0
	notify := func(err error, next time.Duration) {
		attempt++
		log.Warn("upstream call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1)), ctx)
	return backoff.RetryNotify(func() error { return fn(ctx) }, b, notify)
}

// Permanent marks err as non-retryable so Do returns immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
