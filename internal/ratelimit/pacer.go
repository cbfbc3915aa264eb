package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer spreads outbound SMTP probes over time across the whole process,
// independent of the per-domain fixed windows. Upstream mail servers see
// at most `perSecond` new dialogs per second from this process.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing perSecond probes with the given burst.
func NewPacer(perSecond float64, burst int) *Pacer {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a probe slot is available or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Allow reports whether a probe slot is immediately available.
func (p *Pacer) Allow() bool {
	return p.limiter.Allow()
}
