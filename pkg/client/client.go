// Package client provides the shared HTTP transport for page requests and
// the retrying fetcher that wraps it.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/akashgurava/deckterra/pkg/cache"
	"github.com/akashgurava/deckterra/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for transport operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deckterra_requests_total",
		Help: "Total page requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deckterra_request_duration_seconds",
		Help:    "Page request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deckterra_errors_total",
		Help: "Total transport errors by class",
	}, []string{"class"})
)

// maxErrorBody caps how much of a failed response body is kept for diagnostics.
const maxErrorBody = 512

// Transport executes one descriptor and returns the raw response body.
// Implementations must be safe for concurrent use.
type Transport interface {
	Execute(ctx context.Context, d Descriptor) ([]byte, error)
}

// Invalidator is implemented by transports that keep response bodies. The
// retrier calls it when a body fails to decode, so the next attempt goes
// back to the server instead of replaying the same bytes.
type Invalidator interface {
	Invalidate(ctx context.Context, d Descriptor) error
}

// Config holds the client configuration.
type Config struct {
	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds one round trip including reading the body.
	Timeout time.Duration

	// Cache is an optional Redis page cache; nil disables caching.
	Cache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// Client is the shared transport. It holds no per-call state, so one
// instance (and its connection pool) serves every concurrent fetch.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

var (
	_ Transport   = (*Client)(nil)
	_ Invalidator = (*Client)(nil)
)

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: logging.NewLogger("transport"),
	}, nil
}

// Execute performs one round trip for the descriptor.
// Non-2xx responses and network failures come back as *TransportError.
func (c *Client) Execute(ctx context.Context, d Descriptor) ([]byte, error) {
	u, err := d.URL()
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return nil, &TransportError{Class: ErrorClassClient, Message: "invalid descriptor", Err: err}
	}
	endpoint := u.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, string(d.Method()), u.String(), nil)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return nil, &TransportError{Class: ErrorClassClient, Message: "create request", Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 1: Check cache
	var cacheKey cache.CacheKey
	var cached *cache.CacheEntry
	if c.cache != nil {
		cacheKey = cache.KeyFromURL(u)
		cached, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}

		if cached != nil && !cached.IsExpired() {
			cache.CacheHits.Inc()
			requestsTotal.WithLabelValues(endpoint, "cached").Inc()
			c.logger.Debug().Str("target", u.String()).Dur("ttl", cached.TTL()).Msg("Serving page from cache")
			return cached.Data, nil
		}

		if cached != nil && cached.Revalidatable() {
			cache.AddConditionalHeaders(req, cached)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("target", u.String()).
				Str("etag", cached.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 2: Round trip
	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &TransportError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 3: Revalidated cache entry
	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.NotModifiedResponses.Inc()
		if err := c.cache.Refresh(ctx, cacheKey, cached, cache.Freshness(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cached.Data, nil
	}

	// Step 4: HTTP errors
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := resp.Status
		if len(snippet) > 0 {
			msg = fmt.Sprintf("%s: %s", resp.Status, snippet)
		}
		return nil, &TransportError{
			Class:      class,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Message:    msg,
		}
	}

	// Step 5: Success, optionally cached
	if c.cache != nil && cache.Storable(resp) {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return nil, &TransportError{Class: ErrorClassNetwork, StatusCode: resp.StatusCode, Message: "read body", Err: err}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
		return entry.Data, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &TransportError{Class: ErrorClassNetwork, StatusCode: resp.StatusCode, Message: "read body", Err: err}
	}

	return body, nil
}

// Invalidate drops the cached page for d. It is a no-op without a cache.
func (c *Client) Invalidate(ctx context.Context, d Descriptor) error {
	if c.cache == nil {
		return nil
	}
	u, err := d.URL()
	if err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	if err := c.cache.Delete(ctx, cache.KeyFromURL(u)); err != nil {
		return fmt.Errorf("invalidate %s: %w", u.Path, err)
	}
	c.logger.Debug().Str("target", u.String()).Msg("Dropped cached page that failed to decode")
	return nil
}

// classifyStatus maps a non-2xx status to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// parseRetryAfter reads a Retry-After value given either as seconds or as
// an HTTP date. Returns 0 when absent or invalid.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
