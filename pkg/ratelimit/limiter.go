package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var planetLimiterWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "planet_rate_limit_wait_seconds",
	Help:    "Time spent waiting on the local request rate limiter",
	Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
})

// Limiter is a local token bucket applied before every request.
// A nil or disabled Limiter never waits.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows rps requests per second with the given burst.
// rps <= 0 disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}

	start := time.Now()
	err := l.limiter.Wait(ctx)
	planetLimiterWaitSeconds.Observe(time.Since(start).Seconds())
	return err
}

// Enabled reports whether the limiter applies any limit.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limiter != nil
}
