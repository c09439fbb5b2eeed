// Package transport is the retrying HTTP client shared by every component that
// talks to the network.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 1024

// Policy decides how many attempts are made and how long to wait between them.
type Policy struct {
	MaxAttempts int
	// Backoff returns the wait before the retry that follows a failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Retryable reports whether an HTTP status is worth another attempt.
	Retryable func(status int) bool
}

// DefaultPolicy is 3 attempts, 2^attempt seconds between them, retrying 429 and 5xx.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(time.Second),
		Retryable:   RetryableStatus,
	}
}

// ExponentialBackoff waits base*2^attempt.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	}
}

// RetryableStatus matches 429 and any 5xx.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Error is returned once the policy gives up on a request.
type Error struct {
	StatusCode int
	Body       string
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("HTTP %d after %d attempt(s): %s", e.StatusCode, e.Attempts, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request is rebuilt for every attempt, so the body is kept as bytes.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read successful response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client executes requests under a Policy.
type Client struct {
	http   *http.Client
	policy Policy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New wires an HTTP client; a nil client gets a 20 second timeout.
func New(httpClient *http.Client, policy Policy, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Backoff == nil {
		policy.Backoff = ExponentialBackoff(time.Second)
	}
	if policy.Retryable == nil {
		policy.Retryable = RetryableStatus
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{http: httpClient, policy: policy, logger: logger, sleep: sleepContext}
}

// Do runs req until it succeeds, fails with a non-retryable status, or the policy is exhausted.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var lastErr *Error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		resp, err := c.once(ctx, req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request %s: %w", req.URL, ctx.Err())
			}
			lastErr = &Error{Attempts: attempt, Err: err}
		case c.policy.Retryable(resp.StatusCode):
			lastErr = &Error{StatusCode: resp.StatusCode, Body: truncate(resp.Body), Attempts: attempt}
		case resp.StatusCode >= http.StatusBadRequest:
			return nil, &Error{StatusCode: resp.StatusCode, Body: truncate(resp.Body), Attempts: attempt}
		default:
			return resp, nil
		}

		if attempt == c.policy.MaxAttempts {
			break
		}

		wait := c.policy.Backoff(attempt)
		c.logger.Warn("request failed, retrying",
			"url", req.URL,
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"status", lastErr.StatusCode,
			"error", lastErr.Err,
			"wait", wait)

		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("request %s: %w", req.URL, err)
		}
	}

	return nil, lastErr
}

// GetJSON fetches url and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, v any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, URL: url, Header: header})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// PostJSON sends payload as JSON; v may be nil when the response body is irrelevant.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")

	resp, err := c.Do(ctx, Request{Method: http.MethodPost, URL: url, Header: h, Body: body})
	if err != nil {
		return err
	}
	if v == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", "BacklinkOutreach/1.0")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
