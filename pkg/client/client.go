// Package client provides the core Planet API HTTP client with authentication,
// rate limiting, caching, retries and error classification.
package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/planet-client-go/pkg/cache"
	"github.com/Sternrassler/planet-client-go/pkg/logging"
	"github.com/Sternrassler/planet-client-go/pkg/ratelimit"
	"github.com/Sternrassler/planet-client-go/pkg/urls"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Prometheus metrics for API client operations.
var (
	planetRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planet_requests_total",
		Help: "Total Planet API requests by method and status",
	}, []string{"method", "status"})

	planetRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planet_request_duration_seconds",
		Help:    "Planet API request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	planetErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planet_errors_total",
		Help: "Total Planet API errors by class",
	}, []string{"class"})

	planetAbortsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_aborted_requests_total",
		Help: "Total Planet API requests terminated by the caller",
	})
)

// ErrorClass represents a classification of failures used for retry policy
// and metrics.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Version is reported in the default User-Agent.
const Version = "0.3.0"

// Client is the Planet API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	limiter     *ratelimit.Limiter
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	breaker     *gobreaker.CircuitBreaker
	retry       retrier
	config      Config
	principal   string
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey authenticates every request (REQUIRED).
	APIKey string

	// BaseURL is prepended to relative request URLs.
	BaseURL string

	// User-Agent header
	UserAgent string

	// Redis enables the response cache and shared rate limit state (optional).
	Redis *redis.Client

	// Rate Limiting
	RateLimit float64 // Requests per second, 0 disables the local limiter
	Burst     int

	// Caching
	CacheTTL time.Duration // TTL for cacheable responses without expiry headers

	// Retry
	MaxRetries int

	// Circuit breaker
	BreakerFailures uint32        // Consecutive failures before opening
	BreakerTimeout  time.Duration // Time spent open before probing

	// Timeout per HTTP round trip
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		BaseURL:         urls.DefaultBase,
		UserAgent:       "planet-client-go/" + Version,
		RateLimit:       10,
		Burst:           5,
		CacheTTL:        60 * time.Second,
		MaxRetries:      3,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
		Timeout:         30 * time.Second,
	}
}

// New creates a new Planet API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = urls.DefaultBase
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = "planet-client-go/" + Version
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	logger := logging.NewLogger("planet-client")

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   base,
		limiter:   ratelimit.NewLimiter(cfg.RateLimit, cfg.Burst),
		config:    cfg,
		principal: principalOf(cfg.APIKey),
		logger:    logger,
		retry: retrier{
			maxAttempts: cfg.MaxRetries,
			logger:      logger,
		},
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "planet-api",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return c, nil
}

// principalOf derives a non-reversible cache namespace from the API key.
func principalOf(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}

// attemptResult carries one round trip's outcome through the circuit breaker.
type attemptResult struct {
	resp  *Response
	class ErrorClass
	err   error
}

// Do performs a request with rate limiting, caching, retries and error
// classification. Non-success statuses are returned as *ResponseError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	// Every operation is bound to a cancellation token; requests without one
	// get a private token so that Terminator still works.
	token := req.Cancel
	if token == nil {
		token = NewCancellation()
	}
	if token.Aborted() {
		planetAbortsTotal.Inc()
		return nil, newAbortedError(context.Canceled)
	}
	ctx, release := token.Attach(ctx)
	defer release()

	if req.Terminator != nil {
		req.Terminator(token.Abort)
	}

	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", logging.RedactURL(target)).
		Logger()

	startTime := time.Now()
	defer func() {
		planetRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Local and shared rate limits
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.contextError(ctx, logger, err)
	}
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.contextError(ctx, logger, err)
			}
			logger.Warn().Err(err).Msg("Rate limit check failed")
		} else if !allowed {
			logger.Warn().Msg("Request blocked by rate limiter")
			planetRequestsTotal.WithLabelValues(method, "rate_limited").Inc()
			return nil, fmt.Errorf("request blocked: rate limit exhausted")
		}
	}

	// Step 2: Check cache (GET only)
	var (
		cacheKey    cache.CacheKey
		cachedEntry *cache.CacheEntry
	)
	cacheable := c.cache != nil && method == http.MethodGet
	if cacheable {
		cacheKey = cache.CacheKey{
			Endpoint:    target.Host + target.Path,
			QueryParams: target.Query(),
			Principal:   c.principal,
		}
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	header := c.buildHeader(req, requestID, payload != nil)
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(header, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		logger.Debug().Str("etag", cachedEntry.ETag).Msg("Making conditional request")
	}

	logger.Debug().Msg("Executing Planet API request")

	// Step 3: Execute with retry and circuit breaker
	var result attemptResult
	retryErr := c.retry.do(ctx, func() (ErrorClass, error) {
		out, err := c.breaker.Execute(func() (interface{}, error) {
			r := c.attempt(ctx, logger, method, target, header, payload)
			if shouldRetry(r.class) {
				return r, r.err
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = attemptResult{err: fmt.Errorf("planet api unavailable: %w", err)}
			return "", result.err
		}
		r, ok := out.(attemptResult)
		if !ok {
			return "", err
		}
		result = r
		return result.class, result.err
	})

	if ctx.Err() != nil {
		return nil, c.contextError(ctx, logger, ctx.Err())
	}
	if retryErr != nil {
		return nil, retryErr
	}

	resp := result.resp

	// Step 4: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		logger.Debug().Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		if newExpires, ok := cache.ExpiryFromHeader(resp.Header, c.config.CacheTTL); ok {
			if err := c.cache.Refresh(ctx, cacheKey, newExpires); err != nil {
				logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			}
		}

		return &Response{
			StatusCode: cachedEntry.StatusCode,
			Header:     cachedEntry.Headers,
			Body:       cachedEntry.Data,
			FromCache:  true,
		}, nil
	}

	// Step 5: Classify status
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp.StatusCode, resp.Body)
	}

	// Step 6: Update cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, resp.Body, c.config.CacheTTL)
		if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				logger.Debug().Dur("ttl", entry.TTL()).Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// attempt performs a single HTTP round trip and reads the whole body.
func (c *Client) attempt(ctx context.Context, logger zerolog.Logger, method string, target *url.URL, header http.Header, payload []byte) attemptResult {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return attemptResult{err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header = header.Clone()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{err: newAbortedError(ctx.Err())}
		}
		class := c.classifyError(nil, err)
		planetErrorsTotal.WithLabelValues(string(class)).Inc()
		planetRequestsTotal.WithLabelValues(method, "network_error").Inc()
		logger.Error().Err(err).Msg("HTTP request failed")
		return attemptResult{class: class, err: fmt.Errorf("%s %s: %w", method, logging.RedactURL(target), err)}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{err: newAbortedError(ctx.Err())}
		}
		planetErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return attemptResult{class: ErrorClassNetwork, err: fmt.Errorf("read response body: %w", err)}
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, httpResp.Header); err != nil {
			logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	status := strconv.Itoa(httpResp.StatusCode)
	planetRequestsTotal.WithLabelValues(method, status).Inc()

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}

	if httpResp.StatusCode >= 400 {
		class := c.classifyError(httpResp, nil)
		planetErrorsTotal.WithLabelValues(string(class)).Inc()
		logger.Warn().
			Int("status", httpResp.StatusCode).
			Str("error_class", string(class)).
			Msg("Planet API request error")

		return attemptResult{resp: resp, class: class, err: newStatusError(httpResp.StatusCode, data)}
	}

	return attemptResult{resp: resp}
}

// contextError converts a cancelled operation into an aborted error.
func (c *Client) contextError(ctx context.Context, logger zerolog.Logger, err error) error {
	if ctx.Err() == nil {
		return err
	}
	planetAbortsTotal.Inc()
	logger.Debug().Err(ctx.Err()).Msg("Request aborted")
	return newAbortedError(ctx.Err())
}

// resolve builds the absolute URL for req with its query merged in.
func (c *Client) resolve(req *Request) (*url.URL, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("request url is required")
	}

	ref, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}
	target := c.baseURL.ResolveReference(ref)

	if len(req.Query) > 0 {
		q := target.Query()
		for key, values := range req.Query {
			q.Del(key)
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	return target, nil
}

func (c *Client) buildHeader(req *Request, requestID string, hasBody bool) http.Header {
	header := make(http.Header)
	for key, values := range req.Header {
		header[key] = append([]string(nil), values...)
	}
	header.Set("Authorization", "api-key "+c.config.APIKey)
	header.Set("User-Agent", c.config.UserAgent)
	header.Set("Accept", "application/json")
	header.Set("X-Request-Id", requestID)
	if hasBody {
		header.Set("Content-Type", "application/json")
	}
	return header
}

// classifyError categorizes an error for observability and retry handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		c.logger.Debug().Str("class", string(ErrorClassNetwork)).Msg("Error classified")
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Debug().Str("class", string(ErrorClassRateLimit)).Msg("Error classified")
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Debug().Str("class", string(ErrorClassClient)).Msg("Error classified")
		return ErrorClassClient
	case resp.StatusCode >= 500:
		c.logger.Debug().Str("class", string(ErrorClassServer)).Msg("Error classified")
		return ErrorClassServer
	default:
		return ""
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	req := &Request{Method: http.MethodGet, URL: rawURL}
	req.Apply(opts...)
	return c.Do(ctx, req)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Response, error) {
	req := &Request{Method: http.MethodPost, URL: rawURL, Body: body}
	req.Apply(opts...)
	return c.Do(ctx, req)
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.baseURL.String(), "/")
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string {
	return c.config.APIKey
}

// Close releases resources held by the client. The Redis client is owned by
// the caller and is not closed.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// PurgeCache removes every cached response fetched with this client's API
// key. It is a no-op without Redis.
func (c *Client) PurgeCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	n, err := c.cache.Purge(ctx, c.principal)
	if err != nil {
		return n, fmt.Errorf("purge cache: %w", err)
	}
	c.logger.Info().Int("entries", n).Msg("Purged response cache")
	return n, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
