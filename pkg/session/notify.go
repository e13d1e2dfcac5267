package session

import "log/slog"

// Severity grades a user-facing notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String names the severity for logs.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice copy for the failure kinds that use a fixed message. Validation
// and auth failures surface the message extracted from the response body
// instead.
const (
	NoticeNetwork        = "Network error. Check your connection and try again."
	NoticeSessionExpired = "Your session has expired. Please sign in again."
	NoticeForbidden      = "You do not have permission to perform this action."
	NoticeNotFound       = "The requested resource was not found."
	NoticeServer         = "Server error. Please try again later."
)

// Notice is a single user-facing notification about a failed request.
// Every failure produces at most one.
type Notice struct {
	Severity Severity
	Message  string
}

// Notifier receives user-facing notices. Implementations decide how to
// present them: a toast in a UI shell, a line on stderr, a log entry.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notice)

// Notify calls f.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// logNotifier is the default sink when no Notifier is configured.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Notify(t Notice) {
	n.log.Warn("user notice", "severity", t.Severity.String(), "message", t.Message)
}

// Redirector sends the user to a destination in the host UI, typically the
// login screen after the session ends.
type Redirector interface {
	Redirect(dest string)
}

// RedirectorFunc adapts a function to the Redirector interface.
type RedirectorFunc func(string)

// Redirect calls f.
func (f RedirectorFunc) Redirect(dest string) { f(dest) }

type noopRedirector struct{}

func (noopRedirector) Redirect(string) {}

// LoginDestination is where ended sessions are redirected.
const LoginDestination = "/login"
