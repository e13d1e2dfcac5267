// Package httpx provides the outbound HTTP pipeline for the SDK: a small
// http.RoundTripper middleware chain plus the generic stages every client
// carries (request IDs, outbound logging, client-side rate limiting).
// Domain-aware stages (bearer decoration, failure classification) live with
// the session package and plug into the same Middleware shape.
package httpx

import "net/http"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Middleware wraps an http.RoundTripper with additional behavior.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain wraps base with the given middlewares. The first middleware is the
// outermost: it sees the request first and the response last.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}
