package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/lodestar-hq/lodestar-go/pkg/httpx"
	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
	"github.com/lodestar-hq/lodestar-go/pkg/slogx"
)

// Config wires a Manager. BaseURL and Store are required; everything else
// has a sensible zero value.
type Config struct {
	// BaseURL is the API origin, e.g. "https://api.lodestar.example".
	// Requests to other hosts pass through the transport untouched.
	BaseURL string

	// Store persists the credential pair. The manager takes ownership and
	// closes it on Close.
	Store credstore.Store

	// Notifier receives user-facing notices. Defaults to logging them.
	Notifier Notifier

	// Redirector is invoked when the session ends and the user should be
	// sent to login. Defaults to doing nothing.
	Redirector Redirector

	// InitTimeout bounds the wait for the first profile settlement.
	// Non-positive means DefaultInitTimeout.
	InitTimeout time.Duration

	// Quiet422 lists routes whose 422s are logged instead of surfaced.
	// Nil means DefaultQuiet422; an empty non-nil slice disables the list.
	Quiet422 []QuietRoute

	// RateLimit enables client-side throttling of API requests when set.
	RateLimit *httpx.RateLimitConfig

	// UserAgent overrides the User-Agent of clients built by Connect.
	UserAgent string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Manager owns a session: the credential pair, the observable state, the
// profile synchronizer, the initialization gate, and the request transport
// that ties them to API traffic.
type Manager struct {
	base      *url.URL
	log       *slog.Logger
	notifier  Notifier
	redirect  Redirector
	quiet422  []QuietRoute
	rateLimit *httpx.RateLimitConfig

	creds   *Credentials
	state   *State
	profile *ProfileSource
	sync    *Synchronizer
	gate    *Gate

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	runCtx context.Context
	stop   func()
}

// NewManager builds a manager from cfg, fetching profiles through fetcher.
// Nothing runs until Start.
func NewManager(cfg Config, fetcher ProfileFetcher) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("session: base url required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("session: parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("session: base url %q has no host", cfg.BaseURL)
	}
	if cfg.Store == nil {
		return nil, errors.New("session: credential store required")
	}
	if fetcher == nil {
		return nil, errors.New("session: profile fetcher required")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = logNotifier{log: log}
	}
	redirect := cfg.Redirector
	if redirect == nil {
		redirect = noopRedirector{}
	}
	quiet422 := cfg.Quiet422
	if quiet422 == nil {
		quiet422 = DefaultQuiet422
	}

	m := &Manager{
		base:      base,
		log:       log,
		notifier:  notifier,
		redirect:  redirect,
		quiet422:  quiet422,
		rateLimit: cfg.RateLimit,
	}
	m.creds = NewCredentials(cfg.Store)
	m.state = NewState(m.creds)
	m.profile = NewProfileSource(fetcher)
	m.sync = NewSynchronizer(m.creds, m.state, m.profile, log)
	m.gate = NewGate(m.creds, m.profile, cfg.InitTimeout, log)
	return m, nil
}

// Connect builds a Manager and a matching API client in one call: the
// client's requests run through the manager's transport, and the manager
// fetches profiles through the client.
func Connect(cfg Config) (*Manager, *lodestar.Client, error) {
	var opts []lodestar.Option
	if cfg.UserAgent != "" {
		opts = append(opts, lodestar.WithUserAgent(cfg.UserAgent))
	}
	client := lodestar.New(cfg.BaseURL, opts...)

	m, err := NewManager(cfg, client)
	if err != nil {
		return nil, nil, err
	}
	client.HTTPClient.Transport = m.Transport(nil)
	return m, client, nil
}

// Start hydrates the credential mirror from the store, starts the profile
// synchronizer, and kicks off the initialization gate. ctx scopes all
// background work; cancel it to stop profile fetches. Only the first call
// does anything.
func (m *Manager) Start(ctx context.Context) error {
	var err error
	m.startOnce.Do(func() {
		if err = m.creds.Load(ctx); err != nil {
			err = fmt.Errorf("session: %w", err)
			// The gate still resolves: a guard waiting on an unreadable
			// store must not hang until its context dies.
			m.gate.Abort(ctx)
			return
		}

		m.mu.Lock()
		m.runCtx = ctx
		m.mu.Unlock()

		stop := m.sync.Start(ctx)
		m.mu.Lock()
		m.stop = stop
		m.mu.Unlock()

		m.gate.Run(ctx)
	})
	return err
}

// Close stops the synchronizer and releases the credential store.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		stop := m.stop
		m.mu.Unlock()
		if stop != nil {
			stop()
		}
		m.closeErr = m.creds.Close()
	})
	return m.closeErr
}

// State exposes the observable session state.
func (m *Manager) State() *State {
	return m.state
}

// Credentials exposes the session's token pair.
func (m *Manager) Credentials() *Credentials {
	return m.creds
}

// Guard returns a guard over this session for gating navigation.
func (m *Manager) Guard() *Guard {
	return &Guard{state: m.state, gate: m.gate}
}

// Ready returns a channel that closes once initialization settled.
func (m *Manager) Ready() <-chan struct{} {
	return m.gate.Ready()
}

// WaitReady blocks until initialization settled or ctx is done.
func (m *Manager) WaitReady(ctx context.Context) error {
	return m.gate.Wait(ctx)
}

// StoreTokens installs a fresh token pair, typically straight from a login
// or refresh response. Any in-flight profile fetch is detached first, so a
// result obtained under the previous tokens cannot land in the session
// that follows; the synchronizer then refetches under the new tokens.
func (m *Manager) StoreTokens(ctx context.Context, tokens *lodestar.TokenResponse) error {
	if tokens == nil || tokens.AccessToken == "" {
		return errors.New("session: token response has no access token")
	}
	m.profile.Reset()
	return m.creds.StoreTokens(ctx, tokens.AccessToken, tokens.RefreshToken)
}

// Logout ends the session locally: credentials cleared, user reset. The
// server is not told; the tokens simply stop being used.
func (m *Manager) Logout(ctx context.Context) error {
	m.log.Info("signing out")
	m.profile.Reset()
	err := m.creds.Clear(ctx)
	m.state.setUser(nil)
	return err
}

// Invalidate discards the cached profile and, while a token is held,
// fetches it again. Use it after an out-of-band profile change.
func (m *Manager) Invalidate() {
	m.profile.Reset()
	if m.creds.HasAccessToken() {
		m.profile.Load(m.runContext())
	}
}

// Transport wraps base with the session stages: correlation IDs, request
// logging, optional client-side rate limiting, bearer decoration, and
// failure classification. A nil base means http.DefaultTransport.
func (m *Manager) Transport(base http.RoundTripper) http.RoundTripper {
	mws := []httpx.Middleware{
		httpx.RequestID(),
		httpx.Logging(),
	}
	if m.rateLimit != nil {
		mws = append(mws, httpx.RateLimit(*m.rateLimit))
	}
	mws = append(mws,
		Authorize(m.creds, m.base),
		Classifier(m.base, m.quiet422, m.react, m.log),
	)
	return httpx.Chain(base, mws...)
}

// react applies the failure table: at most one notice per failure, quiet
// kinds go to the log, and a rejected session token ends the session.
func (m *Manager) react(ctx context.Context, f Failure) {
	log := slogx.FromContext(ctx)

	switch f.Kind {
	case FailureNone:
		return
	case FailureNetwork:
		m.notifier.Notify(Notice{Severity: SeverityError, Message: NoticeNetwork})
	case FailureAuthRejected:
		m.notifier.Notify(Notice{Severity: SeverityError, Message: f.Message})
	case FailureSessionExpired:
		m.expireSession(ctx)
	case FailureForbidden:
		m.notifier.Notify(Notice{Severity: SeverityWarning, Message: NoticeForbidden})
	case FailureQuietNotFound:
		log.Debug("api resource missing", "method", f.Method, "path", f.Path)
	case FailureNotFound:
		m.notifier.Notify(Notice{Severity: SeverityWarning, Message: NoticeNotFound})
	case FailureQuietValidation:
		log.Debug("validation failed on quiet route", "method", f.Method, "path", f.Path, "message", f.Message)
	case FailureValidation:
		m.notifier.Notify(Notice{Severity: SeverityWarning, Message: f.Message})
	case FailureServer:
		m.notifier.Notify(Notice{Severity: SeverityError, Message: NoticeServer})
	default:
		m.notifier.Notify(Notice{Severity: SeverityError, Message: f.Message})
	}
}

// expireSession reacts to a rejected session token: clear the credentials,
// reset the user, tell the user once, and send them to login.
func (m *Manager) expireSession(ctx context.Context) {
	slogx.FromContext(ctx).Info("session expired, signing out")

	m.profile.Reset()
	if err := m.creds.Clear(context.WithoutCancel(ctx)); err != nil {
		m.log.Error("credential clear failed", "error", err)
	}
	m.state.setUser(nil)

	m.notifier.Notify(Notice{Severity: SeverityWarning, Message: NoticeSessionExpired})
	m.redirect.Redirect(LoginDestination)
}

func (m *Manager) runContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx != nil {
		return m.runCtx
	}
	return context.Background()
}
