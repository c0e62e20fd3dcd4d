package classify

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Default retry parameters for classification calls.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

// retryableFragments are the lower-cased error-message substrings treated as
// transient. The list is vendor-specific by nature (it matches Gemini and
// fetch-style network errors); keeping it in one place means a different
// vendor's messages can be swapped in without touching the retry loop.
var retryableFragments = []string{
	"503",
	"overloaded",
	"429",
	"quota exceeded",
	"network request failed",
	"network error",
	"failed to fetch",
}

// IsRetryable reports whether err looks transient: upstream overload, rate
// limiting, or a network failure. Anything else (invalid key, malformed
// request, parse failures) aborts the retry loop immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range retryableFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// backoffDelay returns the sleep before the attempt following a failed
// attempt: baseDelay doubled once per prior failure (1s, 2s, 4s, ...).
func backoffDelay(attempt int, baseDelay time.Duration) time.Duration {
	return baseDelay << (attempt - 1)
}

// withRetry runs op up to maxAttempts times. Every attempt first takes a
// rate-limiter slot; onRetry fires before attempts 2..n, never before the
// first. A non-retryable error, the last attempt, or context cancellation
// ends the loop, propagating the last error.
func withRetry[T any](ctx context.Context, limiter *Limiter, maxAttempts int, baseDelay time.Duration, onRetry func(attempt, maxAttempts int), op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return zero, err
		}

		if attempt > 1 && onRetry != nil {
			onRetry(attempt, maxAttempts)
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("Classification attempt failed")

		if !IsRetryable(err) || attempt == maxAttempts {
			break
		}

		delay := backoffDelay(attempt, baseDelay)
		log.Debug().Dur("delay", delay).Msg("Backing off before retry")
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
