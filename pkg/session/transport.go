package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/lodestar-hq/lodestar-go/pkg/httpx"
)

// maxClassifyBytes caps how much of a failed response body the classifier
// reads while extracting a message. The caller still gets the whole body
// back; only classification is capped.
const maxClassifyBytes = 1 << 20

// Authorize decorates API requests with the held access token. Requests to
// other hosts, requests to the credential endpoints, and requests that
// already carry an Authorization header pass through untouched. So does
// everything while no token is held.
func Authorize(creds *Credentials, base *url.URL) httpx.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return httpx.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !isAPIRequest(req, base) || isAuthPath(req.URL.Path) {
				return next.RoundTrip(req)
			}
			if req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}
			token := creds.AccessToken()
			if token == "" {
				return next.RoundTrip(req)
			}

			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(clone)
		})
	}
}

// Classifier inspects every API response and hands classified failures to
// react, exactly once per failed request. The response always continues to
// the caller with its body intact, so normal error handling still sees the
// status and payload it expects.
//
// Cancellation is the caller's own doing and is not reported as a failure.
func Classifier(base *url.URL, quiet422 []QuietRoute, react func(context.Context, Failure), log *slog.Logger) httpx.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return httpx.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if !isAPIRequest(req, base) {
				return resp, err
			}

			if err != nil {
				if errors.Is(err, context.Canceled) {
					log.Debug("api request canceled", "method", req.Method, "path", req.URL.Path)
					return resp, err
				}
				react(req.Context(), classifyError(req.Method, req.URL.Path, err))
				return resp, err
			}

			if resp.StatusCode < http.StatusBadRequest {
				return resp, nil
			}

			body := drainBody(resp)
			react(req.Context(), Classify(req.Method, req.URL.Path, resp.StatusCode, body, quiet422))
			return resp, nil
		})
	}
}

// drainBody reads up to maxClassifyBytes of a failed response body for
// classification and restores the body so the caller reads it in full: the
// consumed head is replayed in front of whatever is still unread.
func drainBody(resp *http.Response) []byte {
	if resp.Body == nil {
		return nil
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, maxClassifyBytes))
	if err != nil {
		// The remainder is unreadable; hand back what arrived.
		resp.Body.Close()
		if len(head) == 0 {
			resp.Body = http.NoBody
			return nil
		}
		resp.Body = io.NopCloser(bytes.NewReader(head))
		return head
	}
	resp.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(head), resp.Body),
		Closer: resp.Body,
	}
	return head
}

// replayBody prefixes an already-consumed head onto the live body stream.
type replayBody struct {
	io.Reader
	io.Closer
}
