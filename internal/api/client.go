package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pathwise/trendintel/internal/version"
)

// Client defaults. Trend providers page slowly and rate limit aggressively, so
// retries are few and pages large.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultPageLimit    = 500
)

// Client talks to one JSON trend API. Each source adapter owns its own client.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
	pageLimit    int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for baseURL. An empty apiKey sends no
// Authorization header.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		userAgent:    "trendintel/" + version.Version,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		logger:       slog.Default(),
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		pageLimit:    DefaultPageLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets how often retryable errors are retried and the first
// backoff, which doubles per attempt.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithPageLimit sets the page size requested from paginated endpoints.
func WithPageLimit(n int) ClientOption {
	return func(c *Client) {
		c.pageLimit = n
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to add a proxy.
// Apply WithTimeout after it to change the new client's timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
