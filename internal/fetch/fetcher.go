// Package fetch retrieves raw bytes by locator, where a locator is either a
// filesystem path or an http(s) URL. It owns the retry policy for upstream
// fetches; callers above it never retry.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
)

var (
	// ErrNotFound reports a locator that does not resolve to a resource.
	ErrNotFound = errors.New("resource not found")
	// ErrUpstream reports an upstream that failed to serve the resource.
	ErrUpstream = errors.New("upstream fetch failed")
)

// Fetcher retrieves the raw bytes behind a locator. Callers may interpret
// the bytes as UTF-8 text.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Client is the basic Fetcher over local files and HTTP.
type Client struct {
	client     *http.Client
	userAgent  string
	maxRetries uint64
	maxBody    int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Client) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Client) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets the retry attempts for retryable upstream failures.
func WithMaxRetries(n uint64) Option {
	return func(f *Client) {
		f.maxRetries = n
	}
}

// NewClient creates a Client. The default HTTP transport caches DNS lookups
// with a periodic refresh.
func NewClient(opts ...Option) *Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	c := &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
				},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:  "modvault/1.0",
		maxRetries: 3,
		maxBody:    8 << 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsURL reports whether a locator addresses a remote resource rather than a
// local file.
func IsURL(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// Fetch resolves a locator to raw bytes. Missing files and non-2xx
// responses map to ErrNotFound; transport failures and server errors map to
// ErrUpstream after the retry budget is exhausted.
func (c *Client) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if IsURL(locator) {
		return c.fetchURL(ctx, locator)
	}
	return fetchFile(locator)
}

func fetchFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrUpstream, path, err)
	}
	return data, nil
}

func (c *Client) fetchURL(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	op := func() error {
		data, err := c.doFetch(ctx, url)
		if err != nil {
			// Not-found outcomes are definitive; only upstream failures are
			// worth retrying.
			if errors.Is(err, ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
		if err != nil {
			return nil, fmt.Errorf("%w: reading response body: %v", ErrUpstream, err)
		}
		return data, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d from %s", ErrUpstream, resp.StatusCode, url)

	default:
		// Anything else non-2xx is treated the same as not found.
		return nil, fmt.Errorf("%w: status %d from %s", ErrNotFound, resp.StatusCode, url)
	}
}
