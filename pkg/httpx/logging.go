package httpx

import (
	"net/http"
	"time"

	"github.com/lodestar-hq/lodestar-go/pkg/slogx"
)

// Logging logs one line per outbound request with method, URL, status and
// duration. It reads the contextual logger, so when it runs inside RequestID
// the line carries the correlation ID.
func Logging() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			log := slogx.FromContext(req.Context())

			resp, err := next.RoundTrip(req)
			duration := time.Since(start).Milliseconds()

			if err != nil {
				log.Warn("api_request_failed",
					"method", req.Method,
					"url", req.URL.String(),
					"duration_ms", duration,
					"err", err,
				)
				return nil, err
			}

			log.Debug("api_request",
				"method", req.Method,
				"url", req.URL.String(),
				"status", resp.StatusCode,
				"duration_ms", duration,
			)
			return resp, nil
		})
	}
}
