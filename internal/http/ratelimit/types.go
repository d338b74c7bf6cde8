package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Config holds rate limiting and retry configuration
type Config struct {
	// RequestsPerSecond of 0 disables throttling
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	// MaxRetries of 0 means a single attempt
	MaxRetries       int `json:"maxRetries"`
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
}

// DefaultConfig is a single attempt with no throttling
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 0,
		MaxRetries:        0,
		InitialBackoffMs:  200,
		MaxBackoffMs:      5000,
	}
}

// RateLimiter throttles requests to a single host. It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter for the given config
func NewRateLimiter(config Config) *RateLimiter {
	if config.RequestsPerSecond <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(config.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)}
}

// Throttle blocks until a request may be sent or ctx is done
func (r *RateLimiter) Throttle(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
