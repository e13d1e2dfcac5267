package lodestar

import (
	"net/http"
	"strings"
	"time"
)

// Client is a typed client for the Lodestar platform API. It covers the
// account endpoints the session pipeline needs (register, login, refresh,
// password reset, profile). The zero Authorization policy lives outside the
// Client: wire a session transport into HTTPClient and bearer decoration and
// failure classification happen per request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Use this to install the
// session transport chain.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.UserAgent = ua }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: "lodestar-go",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
