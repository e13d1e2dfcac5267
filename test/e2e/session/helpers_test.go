// End-to-end tests for the session pipeline: a real Manager and Client
// against the in-process fake API, exercising login, restart, refresh,
// expiry and the failure classifier the way an application shell would.
package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lodestar-hq/lodestar-go/internal/apitest"
	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
	"github.com/lodestar-hq/lodestar-go/pkg/session"
)

const (
	testName     = "Dana Scully"
	testEmail    = "dana@example.com"
	testPassword = "trustno1-ok"
)

// recorder captures notices and redirects from the session under test.
type recorder struct {
	mu        sync.Mutex
	notices   []session.Notice
	redirects []string
}

func (r *recorder) Notify(n session.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Redirect(dest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects = append(r.redirects, dest)
}

func (r *recorder) noticeMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]string, len(r.notices))
	for i, n := range r.notices {
		msgs[i] = n.Message
	}
	return msgs
}

func (r *recorder) redirectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.redirects)
}

// harness is one running session against one fake API.
type harness struct {
	api     *apitest.Server
	srv     *httptest.Server
	baseURL string
	store   credstore.Store
	manager *session.Manager
	client  *lodestar.Client
	rec     *recorder
}

type harnessOptions struct {
	store       credstore.Store
	initTimeout time.Duration
	apiOptions  []apitest.Option
	noStart     bool
}

type harnessOption func(*harnessOptions)

// withStore seeds the harness with an existing credential store, as if the
// process restarted over persisted credentials.
func withStore(store credstore.Store) harnessOption {
	return func(o *harnessOptions) { o.store = store }
}

func withInitTimeout(d time.Duration) harnessOption {
	return func(o *harnessOptions) { o.initTimeout = d }
}

func withAPIOptions(opts ...apitest.Option) harnessOption {
	return func(o *harnessOptions) { o.apiOptions = append(o.apiOptions, opts...) }
}

// withoutStart leaves the manager unstarted so the test controls when
// initialization begins.
func withoutStart() harnessOption {
	return func(o *harnessOptions) { o.noStart = true }
}

// setupSession boots a fake API and a session over it. The default store is
// in-memory and the manager is started.
func setupSession(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	var o harnessOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = credstore.NewMemory()
	}

	api := apitest.NewServer(o.apiOptions...)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	rec := &recorder{}
	manager, client, err := session.Connect(session.Config{
		BaseURL:     srv.URL,
		Store:       o.store,
		Notifier:    rec,
		Redirector:  rec,
		InitTimeout: o.initTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	h := &harness{
		api:     api,
		srv:     srv,
		baseURL: srv.URL,
		store:   o.store,
		manager: manager,
		client:  client,
		rec:     rec,
	}
	if !o.noStart {
		h.start(t)
	}
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, h.manager.Start(ctx))
}

// signIn registers the test account when needed and performs a login,
// leaving the session authenticated.
func (h *harness) signIn(t *testing.T) *lodestar.TokenResponse {
	t.Helper()
	ctx := context.Background()

	h.api.Seed(testName, testEmail, testPassword)
	tokens, err := h.client.Login(ctx, lodestar.LoginRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	require.NoError(t, h.manager.StoreTokens(ctx, tokens))
	h.waitAuthenticated(t)
	return tokens
}

// waitAuthenticated polls until the profile synchronizer catches up.
func (h *harness) waitAuthenticated(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.manager.State().Authenticated, 2*time.Second, 10*time.Millisecond,
		"session never became authenticated")
}

// get issues a GET through the session transport and returns the response.
func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	hc := &http.Client{Transport: h.manager.Transport(nil)}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, h.baseURL+path, nil)
	require.NoError(t, err)
	resp, err := hc.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// storedToken reads one entry straight from the backing store.
func (h *harness) storedToken(t *testing.T, kind credstore.Kind) string {
	t.Helper()
	value, err := h.store.Get(context.Background(), kind)
	require.NoError(t, err)
	return value
}
