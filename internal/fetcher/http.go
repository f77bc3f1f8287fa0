package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	MaxBytes    int64         // default 32 MiB
	BackoffBase time.Duration // default 1s
	HostRate    rate.Limit    // initial per-host rate, default 2/s
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with retry and per-host
// rate limiting.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "dse-bonds/1.0"
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 32 << 20
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	if opts.HostRate == 0 {
		opts.HostRate = 2
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// limiterFor returns the adaptive limiter for the URL's host, creating it
// on first use.
func (f *HTTPFetcher) limiterFor(u *url.URL) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[u.Host]
	if !ok {
		lim = NewAdaptiveLimiter(f.opts.HostRate, 1)
		f.limiters[u.Host] = lim
	}
	return lim
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL)
	log := zap.L().With(zap.String("url", req.URL.String()))

	var lastErr error
	for attempt := 0; attempt < f.opts.MaxRetries; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			log.Warn("http request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http 429 from %s", req.URL)
			lim.OnRateLimit()
			log.Warn("rate limited (429), backing off", zap.Int("attempt", attempt+1))
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL)
			log.Warn("server error, retrying", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
			f.backoff(ctx, attempt)
			continue
		}

		lim.OnSuccess()
		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "fetcher: all retries exhausted")
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(f.opts.BackoffBase) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int63n(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Fetch downloads rawURL and returns the report body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: download %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, eris.Errorf("fetcher: %s exceeds %d bytes", rawURL, f.opts.MaxBytes)
	}

	zap.L().Debug("fetcher: downloaded report", zap.String("url", rawURL), zap.Int("bytes", len(body)))
	return &Report{
		URL:         rawURL,
		Name:        reportName(rawURL),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
