// Package apitest provides an in-process Lodestar API for tests: real
// register, login, refresh and profile endpoints over an in-memory user
// table, plus scriptable workspace routes for exercising failure paths.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
)

// DefaultAccessTTL keeps minted tokens valid well past any test run.
const DefaultAccessTTL = 15 * time.Minute

type account struct {
	id        string
	name      string
	email     string
	password  string
	avatarURL string
	createdAt time.Time
	updatedAt time.Time
}

func (a *account) user() lodestar.User {
	return lodestar.User{
		ID:         a.id,
		Name:       a.name,
		Email:      a.email,
		AvatarURL:  a.avatarURL,
		IsActive:   true,
		IsVerified: true,
		CreatedAt:  a.createdAt,
		UpdatedAt:  a.updatedAt,
	}
}

type routeKey struct {
	method string
	path   string
}

type scriptedReply struct {
	status int
	body   string
}

// Server is the fake API. It implements http.Handler; wrap it in an
// httptest.Server to get a base URL.
type Server struct {
	Tokens *TokenMint

	router chi.Router

	mu            sync.Mutex
	byEmail       map[string]*account
	byID          map[string]*account
	refreshTokens map[string]string // refresh token -> user id
	resetTokens   map[string]string // reset token -> user id
	scripted      map[routeKey]scriptedReply
	hung          map[routeKey]bool
	release       chan struct{}
	rotateRefresh bool
}

// Option customizes a Server.
type Option func(*Server)

// WithAccessTTL overrides the lifetime of minted access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) { s.Tokens = NewTokenMint([]byte("apitest-secret"), ttl) }
}

// WithRefreshRotation makes every refresh response carry a new refresh
// token and invalidate the old one. Without it, refresh responses omit
// refresh_token, which clients must treat as "keep the one you have".
func WithRefreshRotation() Option {
	return func(s *Server) { s.rotateRefresh = true }
}

// NewServer builds a fake API with an empty user table.
func NewServer(opts ...Option) *Server {
	s := &Server{
		Tokens:        NewTokenMint([]byte("apitest-secret"), DefaultAccessTTL),
		byEmail:       make(map[string]*account),
		byID:          make(map[string]*account),
		refreshTokens: make(map[string]string),
		resetTokens:   make(map[string]string),
		scripted:      make(map[routeKey]scriptedReply),
		hung:          make(map[routeKey]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/password/reset-request", s.handleResetRequest)
	r.Post("/auth/password/reset", s.handleReset)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/users/me", s.handleMe)
		r.Put("/users/me", s.handleUpdateMe)
	})
	r.HandleFunc("/api/v1/*", s.handleWorkspace)
	s.router = r
	return s
}

// ServeHTTP dispatches to the fake API routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.serveHang(w, r) {
		return
	}
	if s.serveScript(w, r) {
		return
	}
	s.router.ServeHTTP(w, r)
}

// ==== Test controls ====

// Seed creates an account directly and returns its profile.
func (s *Server) Seed(name, email, password string) lodestar.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.createLocked(name, email, password)
	return acct.user()
}

// MintFor returns a valid access and refresh token pair for the account
// with the given email, as if it had just logged in.
func (s *Server) MintFor(email string) (access, refresh string, err error) {
	s.mu.Lock()
	acct, ok := s.byEmail[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok {
		return "", "", errUnknownAccount
	}
	access, err = s.Tokens.Mint(acct.id)
	if err != nil {
		return "", "", err
	}
	refresh = s.newRefreshToken(acct.id)
	return access, refresh, nil
}

// FailWith scripts an exact method and path to answer with the given
// status and body, bypassing the normal handlers.
func (s *Server) FailWith(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripted[routeKey{method: method, path: path}] = scriptedReply{status: status, body: body}
}

// ClearScripts removes all scripted replies.
func (s *Server) ClearScripts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripted = make(map[routeKey]scriptedReply)
}

// Hang makes matching requests block until Release or client disconnect.
func (s *Server) Hang(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release == nil {
		s.release = make(chan struct{})
	}
	s.hung[routeKey{method: method, path: path}] = true
}

// Release unblocks every hung request and stops hanging new ones.
func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		close(s.release)
		s.release = nil
	}
	s.hung = make(map[routeKey]bool)
}

// LastResetToken returns the most recent password reset token issued for
// the account with the given email, or an empty string.
func (s *Server) LastResetToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return ""
	}
	for token, id := range s.resetTokens {
		if id == acct.id {
			return token
		}
	}
	return ""
}

// ==== Handlers ====

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req lodestar.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "name, email and a password of at least 8 characters are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.byEmail[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "email already registered")
		return
	}
	acct := s.createLocked(req.Name, req.Email, req.Password)
	s.mu.Unlock()

	s.writeTokenPair(w, http.StatusCreated, acct.id)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req lodestar.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	acct, ok := s.byEmail[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.writeTokenPair(w, http.StatusOK, acct.id)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	rotate := s.rotateRefresh
	if ok && rotate {
		delete(s.refreshTokens, req.RefreshToken)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "refresh token not recognized")
		return
	}

	access, err := s.Tokens.Mint(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token mint failed")
		return
	}
	resp := lodestar.TokenResponse{AccessToken: access, TokenType: "bearer"}
	if rotate {
		resp.RefreshToken = s.newRefreshToken(userID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	// Same response whether or not the address is registered.
	s.mu.Lock()
	if acct, ok := s.byEmail[strings.ToLower(req.Email)]; ok {
		s.resetTokens[uuid.NewString()] = acct.id
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	userID, ok := s.resetTokens[req.Token]
	if ok {
		delete(s.resetTokens, req.Token)
		s.byID[userID].password = req.NewPassword
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "reset token is invalid or used")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r)
	s.mu.Lock()
	user := acct.user()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req lodestar.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name must not be empty")
		return
	}

	acct := accountFrom(r)
	s.mu.Lock()
	if req.Name != nil {
		acct.name = *req.Name
	}
	if req.AvatarURL != nil {
		acct.avatarURL = *req.AvatarURL
	}
	acct.updatedAt = time.Now().UTC()
	user := acct.user()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

// handleWorkspace answers unscripted workspace routes: authorized requests
// get an empty list, everything else a 401.
func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
}

// ==== Plumbing ====

var errUnknownAccount = jsonError{Message: "unknown account"}

type jsonError struct {
	Message string `json:"message"`
}

func (e jsonError) Error() string { return e.Message }

type ctxKey struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, err := s.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), acct)))
	})
}

func (s *Server) authenticate(r *http.Request) (*account, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, jsonError{Message: "missing bearer token"}
	}
	userID, err := s.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	acct, found := s.byID[userID]
	s.mu.Unlock()
	if !found {
		return nil, errUnknownAccount
	}
	return acct, nil
}

func (s *Server) serveScript(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	reply, ok := s.scripted[routeKey{method: r.Method, path: r.URL.Path}]
	s.mu.Unlock()
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	w.Write([]byte(reply.body))
	return true
}

func (s *Server) serveHang(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	hung := s.hung[routeKey{method: r.Method, path: r.URL.Path}]
	release := s.release
	s.mu.Unlock()
	if !hung {
		return false
	}
	select {
	case <-release:
	case <-r.Context().Done():
	}
	writeError(w, http.StatusServiceUnavailable, "gave up waiting")
	return true
}

func (s *Server) createLocked(name, email, password string) *account {
	now := time.Now().UTC()
	acct := &account{
		id:        uuid.NewString(),
		name:      name,
		email:     email,
		password:  password,
		createdAt: now,
		updatedAt: now,
	}
	s.byEmail[strings.ToLower(email)] = acct
	s.byID[acct.id] = acct
	return acct
}

func (s *Server) newRefreshToken(userID string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[token] = userID
	s.mu.Unlock()
	return token
}

func (s *Server) writeTokenPair(w http.ResponseWriter, status int, userID string) {
	access, err := s.Tokens.Mint(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token mint failed")
		return
	}
	writeJSON(w, status, lodestar.TokenResponse{
		AccessToken:  access,
		RefreshToken: s.newRefreshToken(userID),
		TokenType:    "bearer",
	})
}

func withAccount(ctx context.Context, acct *account) context.Context {
	return context.WithValue(ctx, ctxKey{}, acct)
}

func accountFrom(r *http.Request) *account {
	acct, _ := r.Context().Value(ctxKey{}).(*account)
	return acct
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, jsonError{Message: message})
}
