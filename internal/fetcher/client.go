// Package fetcher is the single HTTP client used to talk to the finance
// backend. Every call is bounded by a per-request timeout and decodes JSON
// straight into the caller's value.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"frugal/internal/config"
	applog "frugal/internal/log"
)

const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 4 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *applog.Logger

	legacyChat bool
	chatUserID string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit throttles outgoing requests to rps per second. Zero or a
// negative value leaves requests unthrottled.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent(applog.ComponentFetcher)
		}
	}
}

// WithLegacyChat switches POST /chat to the {user_id, message} body.
func WithLegacyChat(userID string) Option {
	return func(c *Client) {
		c.legacyChat = true
		c.chatUserID = userID
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     applog.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the loaded configuration.
func NewFromConfig(cfg *config.Config, logger *applog.Logger) *Client {
	opts := []Option{
		WithTimeout(cfg.RequestTimeout),
		WithRateLimit(cfg.RateLimit),
		WithLogger(logger),
	}
	if cfg.Legacy() {
		opts = append(opts, WithLegacyChat(cfg.ChatUserID))
	}
	return New(cfg.APIBaseURL, opts...)
}

func (c *Client) BaseURL() string { return c.baseURL }

// Get issues GET baseURL+path and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues POST baseURL+path with body encoded as JSON and decodes the
// response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	url := c.baseURL + path
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(reqCtx); err != nil {
			return c.classify(reqCtx, method, url, err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return &NetworkError{Method: method, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = c.classify(reqCtx, method, url, err)
		c.logFailure(method, path, start, err)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		err = c.classify(reqCtx, method, url, err)
		c.logFailure(method, path, start, err)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &NetworkError{Method: method, URL: url, StatusCode: resp.StatusCode}
		c.logFailure(method, path, start, err)
		return err
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			serr := &SchemaError{Endpoint: method + " " + path, Err: err}
			c.logFailure(method, path, start, serr)
			return serr
		}
	}

	c.logger.Debug("Request completed",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// classify maps a transport error to TimeoutError when the request deadline
// fired, and to NetworkError otherwise.
func (c *Client) classify(reqCtx context.Context, method, url string, err error) error {
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Method: method, URL: url, Timeout: c.timeout, Err: err}
	}
	return &NetworkError{Method: method, URL: url, Err: err}
}

func (c *Client) logFailure(method, path string, start time.Time, err error) {
	c.logger.Debug("Request failed",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldDuration, time.Since(start).Milliseconds(),
		applog.FieldErrorType, ErrorType(err),
		applog.FieldError, err)
}

// ErrorType names the failure category of err for structured logs.
func ErrorType(err error) string {
	var (
		netErr     *NetworkError
		timeoutErr *TimeoutError
		schemaErr  *SchemaError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeoutErr):
		return applog.ErrorTypeTimeout
	case errors.As(err, &schemaErr):
		return applog.ErrorTypeSchema
	case errors.As(err, &netErr):
		return applog.ErrorTypeNetwork
	default:
		return applog.ErrorTypeInternal
	}
}
