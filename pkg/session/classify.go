package session

import (
	"net/http"
	"strings"

	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
)

// FailureKind buckets a failed API request by how the session layer should
// react to it.
type FailureKind int

const (
	// FailureNone marks a successful response.
	FailureNone FailureKind = iota

	// FailureNetwork is a request that produced no response at all.
	FailureNetwork

	// FailureAuthRejected is a 401 from a credential endpoint: wrong
	// password, stale refresh token. The session itself is unaffected.
	FailureAuthRejected

	// FailureSessionExpired is a 401 anywhere else: the held token no
	// longer authenticates, the session is over.
	FailureSessionExpired

	// FailureForbidden is a 403.
	FailureForbidden

	// FailureQuietNotFound is a 404 under the workspace API prefix.
	FailureQuietNotFound

	// FailureNotFound is a 404 elsewhere.
	FailureNotFound

	// FailureQuietValidation is a 422 from a quiet route.
	FailureQuietValidation

	// FailureValidation is a 422 elsewhere.
	FailureValidation

	// FailureServer is any 5xx.
	FailureServer

	// FailureUnknown is any other status at or above 400.
	FailureUnknown
)

// String names the kind for logs.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNetwork:
		return "network"
	case FailureAuthRejected:
		return "auth_rejected"
	case FailureSessionExpired:
		return "session_expired"
	case FailureForbidden:
		return "forbidden"
	case FailureQuietNotFound:
		return "quiet_not_found"
	case FailureNotFound:
		return "not_found"
	case FailureQuietValidation:
		return "quiet_validation"
	case FailureValidation:
		return "validation"
	case FailureServer:
		return "server"
	default:
		return "unknown"
	}
}

// Failure is the classified outcome of a failed API request. Message is
// display-ready, extracted from the response body with the usual fallback
// chain.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Method     string
	Path       string
}

// Classify maps a response status onto the failure table. Statuses below
// 400 classify as FailureNone.
func Classify(method, path string, status int, body []byte, quiet422 []QuietRoute) Failure {
	f := Failure{
		StatusCode: status,
		Method:     method,
		Path:       path,
	}

	switch {
	case status < http.StatusBadRequest:
		f.Kind = FailureNone
		return f
	case status == http.StatusUnauthorized && isAuthPath(path):
		f.Kind = FailureAuthRejected
	case status == http.StatusUnauthorized:
		f.Kind = FailureSessionExpired
	case status == http.StatusForbidden:
		f.Kind = FailureForbidden
	case status == http.StatusNotFound && strings.HasPrefix(path, apiPrefix):
		f.Kind = FailureQuietNotFound
	case status == http.StatusNotFound:
		f.Kind = FailureNotFound
	case status == http.StatusUnprocessableEntity && isQuiet(quiet422, method, path):
		f.Kind = FailureQuietValidation
	case status == http.StatusUnprocessableEntity:
		f.Kind = FailureValidation
	case status >= http.StatusInternalServerError:
		f.Kind = FailureServer
	default:
		f.Kind = FailureUnknown
	}

	f.Message = lodestar.ExtractMessage(status, body)
	return f
}

// classifyError wraps a transport-level failure, one that never produced a
// response.
func classifyError(method, path string, err error) Failure {
	return Failure{
		Kind:    FailureNetwork,
		Method:  method,
		Path:    path,
		Message: err.Error(),
	}
}
