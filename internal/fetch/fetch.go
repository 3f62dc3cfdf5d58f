package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pageassist/internal/cache"
)

// DefaultMaxBytes caps a page body.
const DefaultMaxBytes = 8 << 20

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 500 {
		return fmt.Sprintf("server error: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// Client downloads HTML pages with bounded retries and an optional
// revalidating disk cache. It satisfies page.Getter.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts       int
	PerRequestTimeout time.Duration
	// MaxBytes limits the body size; zero means DefaultMaxBytes.
	MaxBytes int64
	Cache    *cache.HTTPCache
	// BypassCache skips conditional headers but still stores the response.
	BypassCache bool
	// RedirectMaxHops zero means 5.
	RedirectMaxHops int
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirect()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirect()}
}

// Get fetches target and returns its body and content type.
func (c *Client) Get(ctx context.Context, target string) ([]byte, string, error) {
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, target); err == nil {
			etag, lastMod = meta.ETag, meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(time.Duration(i) * 200 * time.Millisecond):
			}
		}
		resp, err := c.tryOnce(ctx, target, etag, lastMod)
		if err == nil {
			return c.finish(ctx, target, resp)
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
		log.Debug().Err(err).Str("url", target).Int("attempt", i+1).Msg("transient fetch error")
	}
	return nil, "", fmt.Errorf("fetch %s: %w", target, lastErr)
}

func (c *Client) finish(ctx context.Context, target string, r response) ([]byte, string, error) {
	if r.status == http.StatusNotModified && c.Cache != nil {
		body, err := c.Cache.LoadBody(ctx, target)
		if err == nil {
			log.Debug().Str("url", target).Msg("page not modified, served from cache")
			ct := r.contentType
			if meta, err := c.Cache.LoadMeta(ctx, target); err == nil && meta.ContentType != "" {
				ct = meta.ContentType
			}
			return body, ct, nil
		}
		return nil, "", fmt.Errorf("fetch %s: not modified but cache body missing: %w", target, err)
	}
	if c.Cache != nil && r.status == http.StatusOK {
		if err := c.Cache.Save(ctx, target, r.contentType, r.etag, r.lastModified, r.body); err != nil {
			log.Warn().Err(err).Str("url", target).Msg("could not cache page")
		}
	}
	return r.body, r.contentType, nil
}

func (c *Client) tryOnce(ctx context.Context, target, etag, lastMod string) (response, error) {
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return response{}, fmt.Errorf("unsupported URL scheme: %q", req.URL.Scheme)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, &StatusError{Code: resp.StatusCode}
	}
	if !isHTMLContentType(out.contentType) {
		return response{}, fmt.Errorf("unsupported content type: %s", out.contentType)
	}
	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	out.body, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(out.body)) > limit {
		return response{}, fmt.Errorf("page larger than %d bytes", limit)
	}
	return out, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500
}

func (c *Client) checkRedirect() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
