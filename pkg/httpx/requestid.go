package httpx

import (
	"net/http"

	"github.com/lodestar-hq/lodestar-go/pkg/idx"
	"github.com/lodestar-hq/lodestar-go/pkg/slogx"
)

// HeaderRequestID is the outbound correlation header.
const HeaderRequestID = "X-Request-Id"

// RequestID stamps every outgoing request with a ULID correlation ID and
// attaches a request-scoped logger to the context. A caller-provided header
// value is kept as is.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			reqID := req.Header.Get(HeaderRequestID)

			clone := req.Clone(req.Context())
			if reqID == "" {
				reqID = idx.New().String()
				clone.Header.Set(HeaderRequestID, reqID)
			}

			ctx := slogx.WithRequestID(clone.Context(), reqID)
			return next.RoundTrip(clone.WithContext(ctx))
		})
	}
}
