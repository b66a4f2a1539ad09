// Package requester sends outbound API calls with a minimum spacing between
// requests and retries transient failures with exponential backoff.
//
// One Requester serves one remote service. It is not safe for concurrent use;
// the sync driver is strictly sequential.
package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pocketpin/internal/clock"
	"pocketpin/internal/logger"
)

// Request describes one logical call. A retry re-sends the same Request.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// Requester is a rate-limited, retrying HTTP client for a single service.
type Requester struct {
	name       string
	spacing    time.Duration
	last       time.Time
	httpClient *http.Client
	policy     Policy
	logger     *logger.Logger
	clock      clock.Clock
}

// Option is a functional option for configuring a Requester.
type Option func(*Requester)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Requester) {
		r.httpClient = c
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p Policy) Option {
	return func(r *Requester) {
		r.policy = p
	}
}

// WithLogger sets the logger used for per-attempt lines.
func WithLogger(l *logger.Logger) Option {
	return func(r *Requester) {
		r.logger = l
	}
}

// WithClock replaces the wall clock used for spacing and backoff.
func WithClock(c clock.Clock) Option {
	return func(r *Requester) {
		r.clock = c
	}
}

// New creates a Requester that keeps at least spacing between the start of
// consecutive attempts, retries included.
func New(name string, spacing time.Duration, opts ...Option) *Requester {
	r := &Requester{
		name:       name,
		spacing:    spacing,
		httpClient: http.DefaultClient,
		policy:     DefaultPolicy(),
		logger:     logger.Discard(),
		clock:      clock.Real,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do sends req, retrying per the policy, and decodes a JSON response into v
// (skipped when v is nil). After the last attempt it returns the final error,
// which wraps an *APIError when the service answered with an error status.
func (r *Requester) Do(ctx context.Context, req Request, v any) error {
	target, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("failed to parse request URL: %w", err)
	}
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	schedule := r.policy.schedule()
	for attempt := 1; ; attempt++ {
		if err := r.wait(ctx); err != nil {
			return err
		}

		body, err := r.attempt(ctx, req.Method, target, payload)
		if err == nil {
			return decode(body, v)
		}
		if ctx.Err() != nil {
			return err
		}
		if !r.policy.retryable(err) {
			return err
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("%s %s%s: giving up after %d attempts: %w",
				req.Method, target.Host, target.Path, attempt, err)
		}
		r.logger.Warnf("%s: attempt %d failed (%v), retrying in %s", r.name, attempt, err, delay.Round(time.Millisecond))
		if err := r.clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// wait blocks until spacing has elapsed since the previous attempt, then
// stamps the attempt about to be sent.
func (r *Requester) wait(ctx context.Context) error {
	if !r.last.IsZero() {
		if d := r.spacing - r.clock.Now().Sub(r.last); d > 0 {
			if err := r.clock.Sleep(ctx, d); err != nil {
				return err
			}
		}
	}
	r.last = r.clock.Now()
	return nil
}

func (r *Requester) attempt(ctx context.Context, method string, target *url.URL, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
		// Pocket rejects JSON bodies without this header.
		httpReq.Header.Set("X-Accept", "application/json")
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		r.logger.Warnf("%-7s %s%s failed: %v", method, target.Host, target.Path, err)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	r.logger.Infof("%-7s %s%s %d %s", method, target.Host, target.Path, resp.StatusCode, reason(resp))

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		r.logger.Errorf("%s", body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status, Body: string(body)}
	}
	if readErr != nil {
		return nil, &ReadError{Err: readErr}
	}
	return body, nil
}

func decode(body []byte, v any) error {
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func reason(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}
