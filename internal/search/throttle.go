package search

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limits how often the wrapped adapter hits its provider.
type Throttle struct {
	next    Adapter
	limiter *rate.Limiter
}

// NewThrottle wraps next with a token bucket of rps requests per second.
// A non-positive rps disables throttling.
func NewThrottle(next Adapter, rps float64, burst int) *Throttle {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttle) Name() string { return t.next.Name() }

func (t *Throttle) Fetch(ctx context.Context, req Request) Result {
	if err := t.limiter.Wait(ctx); err != nil {
		return Failed("throttle wait: %v", err)
	}
	return t.next.Fetch(ctx, req)
}
