package httpx

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the client-side rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// DefaultLimit keeps a single client comfortably under typical API quotas.
// Allows 100 requests per minute, with all 100 available as a burst.
var DefaultLimit = RateLimitConfig{
	RequestsPerWindow: 100,
	Window:            time.Minute,
	Burst:             100,
}

// RateLimit throttles outbound requests with a token bucket shared across
// the whole client. The stage blocks until a token is available or the
// request context is done, it never drops requests on its own.
func RateLimit(config RateLimitConfig) Middleware {
	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()
	limiter := rate.NewLimiter(rate.Limit(ratePerSecond), config.Burst)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
			return next.RoundTrip(req)
		})
	}
}
