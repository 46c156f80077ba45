package catalog

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/nikolai-in/dlcache/pkg/errors"
)

// HeadResolver resolves a short-link URL to its redirect target using a
// no-body request. Implementations return the final absolute URL, or an empty
// string when the server does not redirect.
type HeadResolver interface {
	ResolveHead(ctx context.Context, rawURL string) (string, error)
}

// maxRedirectHops bounds chained short links (e.g. aka.ms -> go.microsoft.com
// -> download host).
const maxRedirectHops = 5

// HTTPHeadResolver resolves redirects with HEAD requests, never downloading a
// body.
type HTTPHeadResolver struct {
	client    *http.Client
	userAgent string
}

// NewHTTPHeadResolver creates a resolver with the given timeout and user agent.
func NewHTTPHeadResolver(timeout time.Duration, userAgent string) *HTTPHeadResolver {
	if userAgent == "" {
		userAgent = "dlcache/1.0"
	}
	return &HTTPHeadResolver{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				// Surface each 3xx instead of following it; hop handling is ours.
				return http.ErrUseLastResponse
			},
		},
		userAgent: userAgent,
	}
}

// ResolveHead follows up to maxRedirectHops Location headers and returns the
// final URL. A non-3xx first response yields an empty string and no error.
func (r *HTTPHeadResolver) ResolveHead(ctx context.Context, rawURL string) (string, error) {
	current := rawURL
	for hop := 0; hop < maxRedirectHops; hop++ {
		location, redirected, err := r.headOnce(ctx, current)
		if err != nil {
			if hop == 0 {
				return "", err
			}
			// Later hops are best-effort: the target host may not answer
			// HEAD, but the redirect chain already named it.
			return current, nil
		}
		if !redirected {
			if hop == 0 {
				return "", nil
			}
			return current, nil
		}
		current = location
	}
	return current, nil
}

func (r *HTTPHeadResolver) headOnce(ctx context.Context, rawURL string) (location string, redirected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false, errors.Wrap(err, "head request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return "", false, nil
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", false, nil
	}
	// Location may be relative; resolve against the request URL.
	base, err := url.Parse(rawURL)
	if err != nil {
		return "", false, errors.Wrap(errors.ErrInvalidURL, err.Error())
	}
	target, err := base.Parse(loc)
	if err != nil {
		return "", false, errors.Wrap(errors.ErrInvalidURL, err.Error())
	}
	return target.String(), true, nil
}
