package avrix

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "AvrixLauncher/1.0"

// HTTPOption is a functional option for configuring the Client.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	logger       *slog.Logger
	transport    http.RoundTripper
	userAgent    string
	bearerToken  string
	tokenHosts   []string
	middleware   []Middleware
	timeout      time.Duration
	maxRedirects int
}

func defaultHTTPConfig() httpConfig {
	return httpConfig{
		timeout:      30 * time.Second,
		maxRedirects: 10,
		userAgent:    DefaultUserAgent,
	}
}

// WithHTTPRequestTimeout sets the per-request timeout.
func WithHTTPRequestTimeout(d time.Duration) HTTPOption {
	return func(c *httpConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPMaxRedirects sets the maximum number of redirects to follow.
func WithHTTPMaxRedirects(n int) HTTPOption {
	return func(c *httpConfig) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(c *httpConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBearerToken authenticates requests with "Authorization: Bearer <token>".
// The token is only sent to hosts; with no hosts it is only sent to the
// host a request was made to, never to a redirect target on another host.
// An empty token leaves requests unauthenticated.
func WithBearerToken(token string, hosts ...string) HTTPOption {
	return func(c *httpConfig) {
		c.bearerToken = token
		c.tokenHosts = hosts
	}
}

// WithHTTPLogger sets the logger used for request logging.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(c *httpConfig) {
		c.logger = logger
	}
}

// WithHTTPTransport replaces the base transport.
func WithHTTPTransport(rt http.RoundTripper) HTTPOption {
	return func(c *httpConfig) {
		c.transport = rt
	}
}

// WithHTTPMiddleware appends transport middleware. It runs inside the
// built-in header middleware.
func WithHTTPMiddleware(mw ...Middleware) HTTPOption {
	return func(c *httpConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// Client downloads artifacts over HTTP. It implements ports.Fetcher.
type Client struct {
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a Client with the given options.
func NewClient(opts ...HTTPOption) *Client {
	cfg := defaultHTTPConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	chain := []Middleware{
		PanicRecoveryMiddleware(),
		UserAgentMiddleware(cfg.userAgent),
	}
	if cfg.bearerToken != "" {
		chain = append(chain, BearerTokenMiddleware(cfg.bearerToken, cfg.tokenHosts...))
	}
	chain = append(chain, cfg.middleware...)
	chain = append(chain, LoggingMiddleware(cfg.logger))

	return &Client{
		client: createHTTPClient(cfg, Chain(baseTransport(cfg.transport), chain...)),
		logger: cfg.logger,
	}
}

func baseTransport(rt http.RoundTripper) http.RoundTripper {
	if rt != nil {
		return rt
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// createHTTPClient creates an HTTP client with the configured redirect policy.
func createHTTPClient(cfg httpConfig, transport http.RoundTripper) *http.Client {
	client := &http.Client{
		Timeout:   cfg.timeout,
		Transport: transport,
	}

	maxRedirects := cfg.maxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return client
}

// Head issues a HEAD request and returns the advertised Content-Length.
// known is false when the server sent no parseable length.
func (c *Client) Head(ctx context.Context, url string) (int64, bool, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		return 0, false, &entities.BadStatusError{URL: netutil.StripCredentials(url), StatusCode: resp.StatusCode}
	}

	raw := resp.Header.Get("Content-Length")
	if raw == "" {
		return 0, false, nil
	}
	length, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || length < 0 {
		return 0, false, nil
	}
	return length, true, nil
}

// Get downloads the whole body. When limit > 0 the body is read through a
// size-limited reader and TooLarge is returned once more than limit bytes arrive.
func (c *Client) Get(ctx context.Context, url string, limit int64) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		return nil, &entities.BadStatusError{URL: netutil.StripCredentials(url), StatusCode: resp.StatusCode}
	}

	return readHTTPResponse(resp, url, limit)
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, &entities.TransportError{Method: method, URL: netutil.StripCredentials(url), Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &entities.TransportError{Method: method, URL: netutil.StripCredentials(url), Err: err}
	}
	return resp, nil
}

// readHTTPResponse reads the response body with size limiting.
func readHTTPResponse(resp *http.Response, url string, limit int64) ([]byte, error) {
	var body io.Reader = resp.Body
	if limit > 0 {
		body = netutil.NewLimitedReader(resp.Body, limit)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		if netutil.IsSizeLimitExceededError(err) {
			return nil, &entities.TooLargeError{Size: int64(len(data)), Limit: limit}
		}
		return nil, &entities.TransportError{Method: http.MethodGet, URL: netutil.StripCredentials(url), Err: err}
	}
	return data, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
