package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"landmarks/internal/config"
	"landmarks/internal/domain"
)

// Observer receives one call per HTTP attempt. outcome is "ok", "error" or an HTTP status.
type Observer func(upstream, outcome string, elapsed time.Duration)

// Config configures a JSON client for one upstream service.
type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
	Retry   config.RetryConfig
	Breaker config.BreakerConfig
}

// Client is a small JSON-over-HTTP client with retry and a circuit breaker.
// Connection errors, 429 and 5xx responses are retried with exponential backoff;
// 404 maps to a not-found error; other failures are returned as typed domain errors.
type Client struct {
	name     string
	baseURL  string
	headers  map[string]string
	http     *http.Client
	retry    config.RetryConfig
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver reports every attempt, typically to prometheus.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New builds a client.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	c := &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		http:    &http.Client{Timeout: timeout},
		retry:   cfg.Retry,
		logger:  logger.Named(cfg.Name),
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Name, cfg.Breaker, c.logger)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(name string, cfg config.BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSecs) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Name returns the upstream name used in logs and metrics.
func (c *Client) Name() string { return c.name }

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// GetJSON performs GET {base}{path}?{query} and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON performs POST with a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// PutJSON performs PUT with a JSON body and decodes the response into out.
func (c *Client) PutJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete performs DELETE and discards the body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do sends one logical request, retrying transient failures. out may be nil.
// An empty successful body leaves out untouched.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.NewInternalError("encode request body").WithCause(err)
		}
		payload = data
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var hint time.Duration
	op := func() (struct{}, error) {
		err := c.attempt(ctx, method, target, payload, out, &hint)
		if err == nil {
			return struct{}{}, nil
		}
		if !domain.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(&hintedBackOff{BackOff: c.backOff(), hint: &hint, max: c.retry.MaxDelay()}),
		backoff.WithMaxTries(uint(c.retry.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("retrying request",
				zap.String("method", method),
				zap.String("url", target),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if err != nil && ctx.Err() != nil && !isAppError(err) {
		return domain.NewTransportError(fmt.Sprintf("%s %s", method, target)).WithCause(ctx.Err())
	}
	return err
}

func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialDelay()
	b.MaxInterval = c.retry.MaxDelay()
	if c.retry.Multiplier > 0 {
		b.Multiplier = c.retry.Multiplier
	}
	b.RandomizationFactor = c.retry.RandomizationPct
	return b
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, out any, hint *time.Duration) error {
	if c.breaker == nil {
		return c.send(ctx, method, target, payload, out, hint)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.send(ctx, method, target, payload, out, hint)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewUnavailableError(c.name).WithCause(err)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, out any, hint *time.Duration) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return domain.NewInternalError("build request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return domain.NewTransportError(fmt.Sprintf("%s %s", method, target)).WithCause(err)
	}
	defer resp.Body.Close()
	c.observe(strconv.Itoa(resp.StatusCode), start)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(target)
	case resp.StatusCode == http.StatusTooManyRequests:
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				*hint = time.Duration(secs) * time.Second
			}
		}
		return domain.NewTransportError(fmt.Sprintf("%s %s: %s", method, target, resp.Status))
	case resp.StatusCode >= 500:
		return domain.NewTransportError(fmt.Sprintf("%s %s: %s", method, target, resp.Status))
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e := domain.NewTransportError(fmt.Sprintf("%s %s: %s: %s", method, target, resp.Status, strings.TrimSpace(string(snippet))))
		e.Retryable = false
		return e
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewTransportError("read response body").WithCause(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewDataError(fmt.Sprintf("decode %s response", target)).WithCause(err)
	}
	return nil
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.observer != nil {
		c.observer(c.name, outcome, time.Since(start))
	}
}

func isAppError(err error) bool {
	var appErr *domain.AppError
	return errors.As(err, &appErr)
}

// hintedBackOff prefers a server-provided Retry-After delay, capped at max,
// over the next exponential interval.
type hintedBackOff struct {
	backoff.BackOff
	hint *time.Duration
	max  time.Duration
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	if d := *h.hint; d > 0 {
		*h.hint = 0
		if h.max > 0 && d > h.max {
			d = h.max
		}
		return d
	}
	return h.BackOff.NextBackOff()
}
