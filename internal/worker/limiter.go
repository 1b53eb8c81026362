package worker

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the process-wide request budget. Every fetch, from any worker,
// draws from the same token bucket. Safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing requestsPerSecond with the given burst.
// A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{limiter: rate.NewLimiter(toLimit(requestsPerSecond), burst)}
}

func toLimit(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}

// Wait blocks until a permit is available or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow takes a permit if one is available right now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SetRate changes the shared budget for all future permits
func (l *Limiter) SetRate(requestsPerSecond float64, burst int) {
	if burst > 0 {
		l.limiter.SetBurst(burst)
	}
	l.limiter.SetLimit(toLimit(requestsPerSecond))
}

// Limit returns the current rate in requests per second
func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}

// Burst returns the current burst size
func (l *Limiter) Burst() int {
	return l.limiter.Burst()
}

// WaitWithDelay waits for a permit and then an additional delay (robots crawl-delay)
func (l *Limiter) WaitWithDelay(ctx context.Context, additionalDelay time.Duration) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}

	if additionalDelay > 0 {
		timer := time.NewTimer(additionalDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}
