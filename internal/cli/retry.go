package cli

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	apperrors "webshop/internal/errors"
)

// Backoff before retry n: 0ms after the first conflict, then 100ms, 200ms.
var backoffs = []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

// withRetry runs fn until it succeeds, fails with something other than a
// conflict, or maxAttempts is used up. It returns the number of attempts made.
func withRetry(ctx context.Context, maxAttempts int, logger *zap.Logger, fn func(ctx context.Context) error) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if _, conflict := apperrors.IsConflictError(err); !conflict || attempt >= maxAttempts {
			return attempt, err
		}

		wait := backoff(attempt)
		logger.Warn("conflict detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.Duration("backoff", wait))

		select {
		case <-ctx.Done():
			return attempt, err
		case <-time.After(wait):
		}
	}
}

// backoff returns the wait after the given failed attempt with ±20% jitter.
func backoff(attempt int) time.Duration {
	base := backoffs[min(attempt-1, len(backoffs)-1)]
	return time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
}
