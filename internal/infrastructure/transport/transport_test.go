package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	c := New(srv.Client(), DefaultPolicy(), nil)
	c.sleep = rec.sleep
	return c, rec
}

// statusSequence answers with the given statuses in order, repeating the last one.
func statusSequence(calls *int32, statuses ...int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1))
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		_, _ = w.Write([]byte("upstream says no"))
	}
}

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	backoff := ExponentialBackoff(time.Second)
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(2))
	assert.Equal(t, 8*time.Second, backoff(3))
}

func TestRetryableStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, RetryableStatus(http.StatusTooManyRequests))
	assert.True(t, RetryableStatus(http.StatusInternalServerError))
	assert.True(t, RetryableStatus(http.StatusServiceUnavailable))
	assert.False(t, RetryableStatus(http.StatusNotFound))
	assert.False(t, RetryableStatus(http.StatusBadRequest))
	assert.False(t, RetryableStatus(http.StatusOK))
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(statusSequence(&calls, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusOK))
	defer srv.Close()

	c, rec := newTestClient(t, srv)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, nil, &out))

	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.waits)
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(statusSequence(&calls, http.StatusInternalServerError))
	defer srv.Close()

	c, rec := newTestClient(t, srv)

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})

	var tErr *Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusInternalServerError, tErr.StatusCode)
	assert.Equal(t, 3, tErr.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	// no wait after the final attempt
	assert.Len(t, rec.waits, 2)
}

func TestDoFailsFastOnClientError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(statusSequence(&calls, http.StatusNotFound))
	defer srv.Close()

	c, rec := newTestClient(t, srv)

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})

	var tErr *Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusNotFound, tErr.StatusCode)
	assert.Equal(t, "upstream says no", tErr.Body)
	assert.Contains(t, err.Error(), "upstream says no")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.waits)
}

func TestDoRetriesTransportErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, rec := newTestClient(t, srv)

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: url})

	var tErr *Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, 3, tErr.Attempts)
	assert.Zero(t, tErr.StatusCode)
	assert.NotNil(t, tErr.Err)
	assert.Len(t, rec.waits, 2)
}

func TestPostJSONSendsBodyOnEveryAttempt(t *testing.T) {
	t.Parallel()

	var calls int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(buf))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)

	header := http.Header{}
	header.Set("Authorization", "Bearer token")
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, header, map[string]string{"a": "b"}, nil))

	assert.Equal(t, []string{`{"a":"b"}`, `{"a":"b"}`}, bodies)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(statusSequence(&calls, http.StatusServiceUnavailable))
	defer srv.Close()

	c := New(srv.Client(), DefaultPolicy(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := c.Do(ctx, Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
