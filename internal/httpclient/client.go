// Package httpclient provides the retrying, rate-limited HTTP client shared by
// the remote source and extractor adapters.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Config holds configuration for HTTP clients
type Config struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second, 0 disables limiting
	CircuitBreakerMax int     // consecutive failures before the circuit opens, 0 disables
	CircuitResetAfter time.Duration
}

// DefaultConfig returns recommended defaults
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
		RateLimit:         10.0,
		CircuitBreakerMax: 5,
		CircuitResetAfter: 30 * time.Second,
	}
}

// Client wraps retryablehttp.Client with rate limiting and a circuit breaker.
// It is safe for concurrent use.
type Client struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Entry

	mu                sync.Mutex
	circuitBreakerMax int
	resetAfter        time.Duration
	consecutiveErrors int
	openedAt          time.Time
	lastError         error
}

// New creates a new rate-limited HTTP client
func New(cfg Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	entry := logger.WithField("component", "httpclient")

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.Logger = retryablehttp.LeveledLogger(&leveledLogger{entry: entry})

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	resetAfter := cfg.CircuitResetAfter
	if resetAfter <= 0 {
		resetAfter = 30 * time.Second
	}

	return &Client{
		client:            retryClient,
		limiter:           rate.NewLimiter(limit, 1),
		logger:            entry,
		circuitBreakerMax: cfg.CircuitBreakerMax,
		resetAfter:        resetAfter,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.checkCircuit(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(retryReq)
	c.recordOutcome(resp, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get executes a GET request with optional headers
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, header)
	return c.Do(ctx, req)
}

// Post executes a POST request
func (c *Client) Post(ctx context.Context, url string, contentType string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, header)
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// Close closes any resources held by the client
func (c *Client) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

func (c *Client) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openedAt.IsZero() {
		return nil
	}
	if time.Since(c.openedAt) >= c.resetAfter {
		// half-open: let one request through
		c.openedAt = time.Time{}
		c.consecutiveErrors = c.circuitBreakerMax - 1
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCircuitOpen, c.lastError)
}

func (c *Client) recordOutcome(resp *http.Response, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	failed := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !failed {
		c.consecutiveErrors = 0
		return
	}

	c.consecutiveErrors++
	if err != nil {
		c.lastError = err
	} else {
		c.lastError = fmt.Errorf("status %d", resp.StatusCode)
	}
	if c.circuitBreakerMax > 0 && c.consecutiveErrors >= c.circuitBreakerMax && c.openedAt.IsZero() {
		c.openedAt = time.Now()
		c.logger.WithField("consecutive_errors", c.consecutiveErrors).WithError(c.lastError).Warn("Circuit breaker opened")
	}
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct {
	entry *logrus.Entry
}

func (l *leveledLogger) fields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(l.fields(keysAndValues)).Error(msg)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(l.fields(keysAndValues)).Warn(msg)
}
