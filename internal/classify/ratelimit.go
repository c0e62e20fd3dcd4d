package classify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMinInterval is the minimum spacing between remote model calls.
// All classification calls in the process share one spacing budget,
// trading fairness for simplicity against a single upstream quota.
const DefaultMinInterval = 2 * time.Second

// Limiter enforces a minimum interval between permitted calls, process-wide.
// The mutex is held across the wait so racing callers queue one interval
// apart instead of reading the same timestamp and firing together.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewLimiter creates a Limiter with the given minimum interval between
// calls. A non-positive interval disables spacing.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Wait blocks until the caller may issue a remote call, then records the
// permit time. A caller whose context is cancelled while waiting does not
// consume a slot.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if wait := l.interval - time.Since(l.last); wait > 0 {
		log.Debug().Dur("wait", wait).Msg("Rate limiting Gemini call")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	l.last = time.Now()
	return nil
}
