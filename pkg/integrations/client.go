package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/blockdeck/pkg/buildinfo"
	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/httputil"
	"github.com/matzehuels/blockdeck/pkg/observability"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 32 << 20

// Client provides shared HTTP functionality for content source clients.
// It handles caching, retry logic, status mapping and common request headers.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	namespace string
	ttl       time.Duration
	headers   map[string]string
}

// NewClient creates a Client backed by c. Cached entries are stored under
// namespace with the given ttl. Headers are applied to all requests made
// through this client; pass nil if no default headers are needed.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:      NewHTTPClient(),
		cache:     c,
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
	}
}

// WithHTTPClient replaces the underlying HTTP client. It is used by tests
// and by callers that need a custom transport.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.http = h
	}
	return c
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	fullKey := c.namespace + key
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, fullKey); ok {
			if json.Unmarshal(data, v) == nil {
				observability.Cache().OnCacheHit(ctx, c.namespace)
				return nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, c.namespace)
	}
	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, fullKey, data, c.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, c.namespace, len(data))
		}
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// It uses the client's default headers and handles retries automatically.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
// Transient failures come back wrapped in [httputil.RetryableError]; callers
// decide whether to retry, usually through [Client.Cached] or
// [httputil.RetryWithBackoff].
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp.Body, v)
}

// PostJSON sends body as JSON and decodes the JSON response into v.
// A nil body sends an empty JSON object; a nil v discards the response.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, v any) error {
	if body == nil {
		body = struct{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, val := range headers {
		h[k] = val
	}
	resp, err := c.do(ctx, http.MethodPost, url, h, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeJSON(resp.Body, v)
}

// GetText performs an HTTP GET request and returns the response body as a string.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	data, _, err := c.GetBytes(ctx, url, nil)
	return string(data), err
}

// GetBytes performs an HTTP GET and returns the raw body along with the
// response Content-Type header.
func (c *Client) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", httputil.Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(r, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := splitURL(rawURL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// checkResponse maps a non-2xx response to a sentinel error. The body is
// consulted for an API error message when one is present.
func checkResponse(resp *http.Response) error {
	err := StatusError(resp.StatusCode)
	if err == nil {
		return nil
	}
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if data, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); rerr == nil {
		_ = json.Unmarshal(data, &apiErr)
	}
	if apiErr.Code == "object_not_found" {
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	if apiErr.Message != "" {
		err = annotate(err, apiErr.Message)
	}
	if re, ok := err.(*httputil.RetryableError); ok && resp.StatusCode == http.StatusTooManyRequests {
		re.After = httputil.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return err
}

// annotate appends an API message to err while keeping its retry wrapper.
func annotate(err error, msg string) error {
	if re, ok := err.(*httputil.RetryableError); ok {
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %s", re.Err, msg), After: re.After}
	}
	return fmt.Errorf("%w: %s", err, msg)
}

func splitURL(raw string) (host, path string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	return u.Host, u.Path
}
