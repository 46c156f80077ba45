// Package download performs the actual fetch of artifacts for cache misses:
// streaming HTTP downloads with bounded retries, exponential backoff and
// optional request pacing. All writes are confined to caller-supplied temp
// paths.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/fsutil"
	"github.com/nikolai-in/dlcache/pkg/model"
)

// Options configure an HTTPFetcher.
type Options struct {
	// Timeout is the hard per-attempt limit, independent of retries. A hung
	// connection must not block a worker slot indefinitely.
	Timeout time.Duration
	// MaxRetries is the total number of attempts before a fetch is terminal.
	MaxRetries int
	// BaseDelay seeds the backoff schedule: the nth retry waits
	// 2^(n-1) * BaseDelay.
	BaseDelay time.Duration
	// RequestsPerSecond throttles request starts across all callers sharing
	// the fetcher. Zero means unlimited.
	RequestsPerSecond float64
	// UserAgent overrides the default request user agent.
	UserAgent string
}

// Defaults for unset options.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// HTTPFetcher is the HTTP implementation of Fetcher.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
}

// NewHTTPFetcher creates a fetcher with the given options, filling in
// defaults for unset fields.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "dlcache/1.0"
	}
	f := &HTTPFetcher{
		client:     &http.Client{Timeout: opts.Timeout},
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
	}
	if opts.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return f
}

// Fetch attempts the download up to MaxRetries times, sleeping
// 2^(attempt-1) * BaseDelay between attempts. Any partially written temp file
// is deleted before the next retry and before returning failure, so a failed
// fetch never leaves an artifact that could be mistaken for a cache entry.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, destTemp string) model.FetchResult {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = f.baseDelay
	schedule.Multiplier = 2
	schedule.RandomizationFactor = 0
	schedule.MaxInterval = 10 * time.Minute
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		attempts = attempt
		written, err := f.attempt(ctx, rawURL, destTemp)
		if err == nil {
			return model.FetchResult{
				Status:       model.FetchSuccess,
				BytesWritten: written,
				Attempts:     attempt,
			}
		}
		_ = os.Remove(destTemp)
		lastErr = err

		if ctx.Err() != nil || attempt == f.maxRetries {
			break
		}
		wait := schedule.NextBackOff()
		logger.Debug("download attempt failed, backing off", logger.Fields{
			"url":     rawURL,
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
		select {
		case <-ctx.Done():
			return model.FetchResult{Status: model.FetchFailed, Attempts: attempt, LastError: ctx.Err()}
		case <-time.After(wait):
		}
	}
	return model.FetchResult{Status: model.FetchFailed, Attempts: attempts, LastError: lastErr}
}

// attempt performs one request and streams the body to destTemp. The body is
// never buffered in memory; cached artifacts can be multi-gigabyte images.
func (f *HTTPFetcher) attempt(ctx context.Context, rawURL, destTemp string) (int64, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDownloadFailed, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %d", errors.ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := fsutil.EnsureFileDir(destTemp); err != nil {
		return 0, errors.Wrap(errors.ErrStorage, err.Error())
	}
	out, err := os.OpenFile(destTemp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStorage, err.Error())
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		return written, errors.Wrap(errors.ErrDownloadFailed, err.Error())
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return written, errors.Wrap(errors.ErrStorage, err.Error())
	}
	if err := out.Close(); err != nil {
		return written, errors.Wrap(errors.ErrStorage, err.Error())
	}
	return written, nil
}
