package session

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// apiPrefix is the versioned base path of workspace resources. 404s
	// under it are expected during navigation and stay out of the UI.
	apiPrefix = "/api/v1"

	// authMarker identifies the credential endpoints, which handle their
	// own failures inline.
	authMarker = "/auth/"
)

// QuietRoute names a request whose expected failures should be logged
// instead of surfaced to the user.
type QuietRoute struct {
	Method string
	Path   string
}

// DefaultQuiet422 lists the workspace list endpoints that return 422 while
// their backing scan is still warming up.
var DefaultQuiet422 = []QuietRoute{
	{Method: http.MethodGet, Path: "/api/v1/issues"},
	{Method: http.MethodGet, Path: "/api/v1/pages"},
}

// isAPIRequest reports whether req targets the configured API host.
// Requests without a host count as API requests.
func isAPIRequest(req *http.Request, base *url.URL) bool {
	if req.URL.Host == "" {
		return true
	}
	return strings.EqualFold(req.URL.Host, base.Host)
}

// isAuthPath reports whether path belongs to the credential endpoints.
func isAuthPath(path string) bool {
	return strings.Contains(path, authMarker)
}

// isQuiet reports whether the request matches one of the quiet routes.
func isQuiet(routes []QuietRoute, method, path string) bool {
	for _, r := range routes {
		if r.Method == method && r.Path == path {
			return true
		}
	}
	return false
}
