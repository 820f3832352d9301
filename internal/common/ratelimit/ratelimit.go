// Package ratelimit provides a token-bucket limiter used to pace Microsoft
// Graph calls. A rate of zero or less disables limiting entirely, which lets
// callers thread one limiter through unconditionally.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate with an explicit disabled state.
// The burst size is fixed at 1 so calls are spaced evenly rather than
// allowed to cluster.
type Limiter struct {
	limiter *rate.Limiter // nil when disabled
	rps     float64
}

// New creates a limiter allowing rps requests per second.
// A rate of zero or less returns a disabled limiter that never waits.
func New(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		rps:     rps,
	}
}

// Enabled reports whether the limiter actually limits.
func (l *Limiter) Enabled() bool {
	return l.limiter != nil
}

// RPS returns the configured rate, 0 when disabled.
func (l *Limiter) RPS() float64 {
	return l.rps
}

// Wait blocks until the next call is permitted or the context is done.
// Disabled limiters return immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	if l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

// Reserve returns a reservation for the next call, or nil when the limiter
// is disabled (unlimited rate).
func (l *Limiter) Reserve() *rate.Reservation {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Reserve()
}

// String describes the limiter for logs.
func (l *Limiter) String() string {
	if l.limiter == nil {
		return "rate limiting disabled"
	}
	if l.rps < 1 {
		return fmt.Sprintf("1 request per %s", time.Duration(float64(time.Second)/l.rps).Round(time.Millisecond))
	}
	return fmt.Sprintf("%.2f rps", l.rps)
}
