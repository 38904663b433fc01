package entertainment

import (
	"golang.org/x/time/rate"
)

// Throttle bounds frame emission to at most one frame per 1/F seconds,
// dropping excess frames rather than queueing them (spec.md §4.7, P8).
// It wraps golang.org/x/time/rate the same way the teacher's reconciler
// uses it for its own outbound rate limiting.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle admitting at most fps frames per second.
func NewThrottle(fps int) *Throttle {
	if fps <= 0 {
		fps = 20
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(fps), 1)}
}

// Allow reports whether a frame may be emitted now. It never blocks: a
// frame arriving before the next admitted instant is simply dropped.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}
