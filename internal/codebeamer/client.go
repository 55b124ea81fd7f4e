package codebeamer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/featuresync/internal/config"
	"github.com/fyrsmithlabs/featuresync/internal/requirement"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const (
	defaultBaseBackoff = 500 * time.Millisecond
	maxBackoff         = 30 * time.Second
	instrumentation = "github.com/fyrsmithlabs/featuresync/internal/codebeamer"
)

// Client creates items in one tracker.
type Client struct {
	itemsURL   string
	username   string
	password   config.Secret
	trackerID  int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	duration   metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMeter records create latency on meter instead of the global one.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) { c.duration = newDurationHistogram(m) }
}

// WithBaseBackoff sets the first retry delay. Later delays double.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// New builds a client from cfg. The credentials, URL and tracker id must be
// set; see config.CodebeamerConfig.Validate.
func New(cfg config.CodebeamerConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	c := &Client{
		itemsURL:   strings.TrimRight(cfg.APIURL, "/") + "/items",
		username:   cfg.Username,
		password:   cfg.Password,
		trackerID:  cfg.TrackerID,
		httpClient: &http.Client{Timeout: cfg.Timeout.Duration()},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		backoff:    defaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.duration == nil {
		c.duration = newDurationHistogram(otel.GetMeterProvider().Meter(instrumentation))
	}
	return c, nil
}

func newDurationHistogram(m metric.Meter) metric.Float64Histogram {
	h, err := m.Float64Histogram("featuresync.codebeamer.create.duration",
		metric.WithDescription("Latency of tracker item creation including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		// Only fails on an invalid instrument name.
		panic(err)
	}
	return h
}

// Create posts req as a new tracker item and returns its id.
func (c *Client) Create(ctx context.Context, req *requirement.CreateRequest) (string, error) {
	start := time.Now()
	id, err := c.create(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
	return id, err
}

func (c *Client) create(ctx context.Context, req *requirement.CreateRequest) (string, error) {
	body, err := json.Marshal(c.payload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal item: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.delay(attempt, lastErr)); err != nil {
				return "", err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		id, err := c.doRequest(ctx, body)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !isRetryableError(err) || ctx.Err() != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) payload(req *requirement.CreateRequest) itemRequest {
	return itemRequest{
		Name:        req.Name,
		Tracker:     trackerRef{ID: c.trackerID},
		Description: req.Description,
		CustomFields: []customField{
			{Name: FieldRationale, Value: req.Rationale},
			{Name: FieldAcceptanceCriteria, Value: req.AcceptanceCriteria},
			{Name: FieldPOF, Value: yesNo(req.Verified)},
			{Name: FieldSafety, Value: yesNo(req.Safety)},
			{Name: FieldSecurity, Value: yesNo(req.Security)},
		},
	}
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.itemsURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.username, c.password.Value())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if notSent(err) {
			return "", &retryableError{err: fmt.Errorf("request failed: %w", err)}
		}
		return "", fmt.Errorf("request failed, item may have been created: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		if retryableStatus(resp.StatusCode) {
			return "", &retryableError{err: &retryAfterError{APIError: apiErr, after: retryAfter(resp.Header)}}
		}
		return "", apiErr
	}

	var item itemResponse
	if err := json.Unmarshal(respBody, &item); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if item.ID == 0 {
		return "", ErrMissingID
	}
	return strconv.FormatInt(item.ID, 10), nil
}

// retryAfterError carries the server's Retry-After hint with the APIError.
type retryAfterError struct {
	*APIError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.APIError }

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// delay returns the wait before attempt: exponential from the base backoff,
// raised to the server's Retry-After when given, capped at maxBackoff.
func (c *Client) delay(attempt int, lastErr error) time.Duration {
	// Doubling stops at maxBackoff so large attempt counts cannot overflow.
	d := c.backoff
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	var ra *retryAfterError
	if errors.As(lastErr, &ra) && ra.after > d {
		d = ra.after
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
