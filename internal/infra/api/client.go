// Package api is a typed client for the WeRSS backend REST API.
//
// Every call goes through the same pipeline: rate limiting, a circuit
// breaker, an OpenTelemetry client span, Prometheus metrics and, for GET
// requests, retry with exponential backoff. Responses are unwrapped from
// the backend's {code, message, data} envelope; failures surface as
// *APIError, which matches the package sentinels with errors.Is.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"werss-client/internal/handler/http/requestid"
	"werss-client/internal/observability/logging"
	"werss-client/internal/observability/tracing"
	"werss-client/internal/resilience/circuitbreaker"
	"werss-client/internal/resilience/retry"
)

// DefaultBaseURL is the API root of a locally running backend.
const DefaultBaseURL = "http://localhost:8001/api/v1"

const defaultUserAgent = "werss-client/1.0"

// Config holds API client configuration.
type Config struct {
	// BaseURL is the API root, including the /api/v1 prefix.
	BaseURL string

	// Token is sent as a bearer token when non-empty. It may be a JWT
	// session token or an access key.
	Token string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// RateLimit is the sustained request rate in requests per second.
	// Zero disables client side rate limiting.
	RateLimit float64

	// RateBurst is the limiter burst size.
	RateBurst int

	// Retry configures GET retries.
	Retry retry.Config

	// Breaker configures the circuit breaker shared by all calls.
	Breaker circuitbreaker.Config

	// Logger receives debug logs for failed calls. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns a configuration for a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   15 * time.Second,
		UserAgent: defaultUserAgent,
		RateLimit: 10,
		RateBurst: 20,
		Retry:     retry.APIConfig(),
		Breaker:   circuitbreaker.APIConfig(),
	}
}

// Client calls the WeRSS backend. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// New creates a Client. Zero fields of cfg take DefaultConfig values.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, validationErrorf("base url %q must be an absolute http(s) URL", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = def.Retry
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = def.Breaker
	}
	if cfg.Breaker.IsSuccessful == nil {
		// A 4xx says nothing about backend health.
		cfg.Breaker.IsSuccessful = func(err error) bool { return err == nil || IsClientError(err) }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)
	if cfg.Token != "" {
		hc.SetAuthToken(cfg.Token)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		http:    hc,
		cfg:     cfg,
		limiter: limiter,
		breaker: circuitbreaker.New(cfg.Breaker),
		logger:  logger,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// FeedURL returns the RSS feed address the backend publishes for mpID.
// Feeds are served from the origin, outside the /api/v1 prefix.
func (c *Client) FeedURL(mpID string) string {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/feed/" + mpID + ".rss"}).String()
}

// request describes one backend call. Route is the templated path used for
// span names and metric labels; Path is the concrete path.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
	// once disables GET retries for endpoints with side effects.
	once bool
}

func get(route, path string, query url.Values) request {
	return request{method: http.MethodGet, route: route, path: path, query: query}
}

// do runs req through the client pipeline and decodes the envelope's data
// into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, reqID := requestid.Ensure(ctx)
	ctx, span := tracing.StartClientSpan(ctx, req.method, req.route)
	start := time.Now()

	status := 0
	attempt := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}
		st, err := circuitbreaker.Run(c.breaker, func() (int, error) {
			return c.execute(ctx, reqID, req, out)
		})
		status = st
		return err
	}

	var err error
	if req.method == http.MethodGet && !req.once {
		err = retry.WithBackoff(ctx, c.cfg.Retry, attempt)
	} else {
		err = attempt()
	}

	recordRequest(req.method, req.route, status, time.Since(start))
	tracing.EndClientSpan(span, status, err)

	if err != nil {
		logging.WithRequestID(ctx, c.logger).Debug("api request failed",
			slog.String("method", req.method),
			slog.String("route", req.route),
			slog.Int("status", status),
			slog.Any("error", err))
		return fmt.Errorf("%s %s: %w", req.method, req.route, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, reqID string, req request, out any) (int, error) {
	r := c.http.R().
		SetContext(ctx).
		SetHeader(requestid.RequestIDHeader, reqID)
	if len(req.query) > 0 {
		r.SetQueryParamsFromValues(req.query)
	}
	if req.body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.body)
	}
	tracing.InjectHeaders(ctx, r.Header)

	resp, err := r.Execute(req.method, req.path)
	if err != nil {
		return 0, err
	}

	err = decodeEnvelope(resp.StatusCode(), resp.Header(), resp.Body(), out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RequestID == "" {
		apiErr.RequestID = reqID
	}
	return resp.StatusCode(), err
}

// pathID escapes a caller supplied identifier for use as a path segment.
func pathID(name, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", validationErrorf("%s is required", name)
	}
	return url.PathEscape(id), nil
}

// pageQuery builds the offset/limit pair used by every list endpoint.
// Page is zero-based; a non-positive size falls back to def.
func pageQuery(page, size, def int) url.Values {
	if size <= 0 {
		size = def
	}
	if page < 0 {
		page = 0
	}
	q := url.Values{}
	q.Set("offset", fmt.Sprint(page*size))
	q.Set("limit", fmt.Sprint(size))
	return q
}
