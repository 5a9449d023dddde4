// Package httpx is the shared JSON-over-HTTP client for the upstream data
// sources. Only timeout-class failures are retried, with exponential
// backoff; every other failure is returned at once as a *RequestError.
// Requests also pass through a per-source circuit breaker.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"natgas-forecast/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 0
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	maxErrorBody = 512
)

// Client performs GET requests against one upstream source.
type Client struct {
	source      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets how many times a timed-out request is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client. Its Timeout is kept unless
// WithTimeout is applied after it.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithBreakerSettings replaces the default circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) ClientOption {
	return func(c *Client) {
		if st.Name == "" {
			st.Name = c.source
		}
		c.breaker = gobreaker.NewCircuitBreaker(st)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the named source ("eia", "noaa").
func NewClient(source string, opts ...ClientOption) *Client {
	c := &Client{
		source:      source,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		logger:      zap.NewNop(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the source label used in errors and metrics.
func (c *Client) Source() string {
	return c.source
}

// GetJSON sends the request built by build and decodes a 2xx body into out.
// build is called once per attempt so each attempt gets a fresh request.
func (c *Client) GetJSON(ctx context.Context, build func(ctx context.Context) (*http.Request, error), out any) error {
	delay := c.retryDelay
	var (
		lastErr error
		target  string
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordRetry(c.source)
			c.logger.Warn("request timed out, retrying",
				zap.String("source", c.source),
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := build(ctx)
		if err != nil {
			return fmt.Errorf("%s: build request: %w", c.source, err)
		}
		target = redact(req)

		body, err := c.do(req)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return &RequestError{Source: c.source, URL: target, Body: truncate(body), Err: fmt.Errorf("decode response: %w", err)}
			}
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTimeout(err) {
			var re *RequestError
			if errors.As(err, &re) {
				re.Source, re.URL = c.source, target
				return re
			}
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return &RequestError{Source: c.source, URL: target, Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
			}
			return &RequestError{Source: c.source, URL: target, Err: err}
		}
		lastErr = err
	}

	return &TransientError{Source: c.source, URL: target, Attempts: c.maxRetries + 1, Err: lastErr}
}

// do runs one attempt through the circuit breaker and returns the body of
// a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	defer func() {
		observability.RecordSourceLatency(c.source, time.Since(start))
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &RequestError{
				StatusCode: resp.StatusCode,
				Body:       truncate(body),
				Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
