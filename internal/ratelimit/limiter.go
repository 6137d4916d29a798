// Package ratelimit wraps a token-bucket limiter for outbound exchange
// traffic. Deribit throttles the credentials tier this client targets to
// bursts of 20 requests refilled at 5 per second, which are the defaults.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Config defines the token bucket parameters.
type Config struct {
	// RequestsPerSecond is the sustained refill rate.
	RequestsPerSecond rate.Limit
	// Burst is the bucket capacity.
	Burst int
	// Enabled determines if rate limiting is active.
	Enabled bool
}

// DefaultConfig returns the exchange's non-matching-engine limits:
// burst 20, refill 5 requests per second.
func DefaultConfig() *Config {
	return &Config{
		RequestsPerSecond: 5,
		Burst:             20,
		Enabled:           true,
	}
}

// NoLimit returns a configuration with rate limiting disabled.
func NoLimit() *Config {
	return &Config{Enabled: false}
}

// Limiter admits outbound requests while the bucket holds at least one
// token. Each admission check refills tokens for the elapsed wall-clock time
// and, when allowed, debits exactly one. The limiter is internally
// synchronized; the client consults it from both the caller goroutine
// (advisory) and the sender goroutine (authoritative).
type Limiter struct {
	lim *rate.Limiter // nil when disabled
}

// New creates a limiter from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !cfg.Enabled {
		return &Limiter{}
	}
	return &Limiter{lim: rate.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)}
}

// Allow reports whether one request may proceed now, debiting a token when it
// may. It never blocks.
func (l *Limiter) Allow() bool {
	if l.lim == nil {
		return true
	}
	return l.lim.Allow()
}

// Wait blocks until a token is available or ctx is done. The sender uses this
// as its authoritative gate so it parks instead of spinning while throttled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.lim == nil {
		return nil
	}
	return l.lim.Wait(ctx)
}

// Tokens reports the current bucket level. Snapshot for tests and logs.
func (l *Limiter) Tokens() float64 {
	if l.lim == nil {
		return 0
	}
	return l.lim.Tokens()
}
