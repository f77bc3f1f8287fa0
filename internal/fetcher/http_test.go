package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:   "test-agent",
		Timeout:     5 * time.Second,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
		HostRate:    1000,
	})
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		w.Write([]byte("<p>Bond No.</p>")) //nolint:errcheck
	}))
	defer srv.Close()

	rep, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/reports/bonds-2024-03-12.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>Bond No.</p>", string(rep.Body))
	assert.Equal(t, "bonds-2024-03-12.html", rep.Name)
	assert.Equal(t, "text/html; charset=windows-1252", rep.ContentType)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	rep, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(rep.Body))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "report.html", rep.Name)
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_429ReducesRate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	var lim *AdaptiveLimiter
	for _, l := range f.limiters {
		lim = l
	}
	require.NotNil(t, lim)
	// halved to 500, then raised 20% on success
	assert.InDelta(t, 600, float64(lim.Limit()), 0.001)
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64))) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxBytes: 16, HostRate: 1000})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "://bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create request")
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().Fetch(ctx, srv.URL)
	assert.Error(t, err)
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	a := NewAdaptiveLimiter(10, 1)

	for i := 0; i < 10; i++ {
		a.OnSuccess()
	}
	assert.InDelta(t, 20, float64(a.Limit()), 0.001)

	for i := 0; i < 10; i++ {
		a.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(a.Limit()), 0.001)
	assert.Equal(t, rate.Limit(2.5), a.limiter.Limit())
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "dse-bonds/1.0", f.opts.UserAgent)
	assert.Equal(t, 3, f.opts.MaxRetries)
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
	assert.Equal(t, int64(32<<20), f.opts.MaxBytes)

	var _ Fetcher = f
}
