// Package fetch provides the HTTP client used to pull post pages and
// avatars. Requests carry browser-like headers because the target platforms
// serve reduced markup to obvious bots.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	defaultMaxBody = 2 << 20 // 2 MiB is plenty for a post page

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
)

// Client wraps http.Client with a per-request timeout and a body size cap.
type Client struct {
	http    *http.Client
	maxBody int64
}

type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		maxBody: cfg.MaxBodyBytes,
	}
}

// HTML issues a GET with browser-like headers and returns the raw markup.
// extra headers (typically Referer) are applied after the defaults.
func (c *Client) HTML(ctx context.Context, url string, extra map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.9")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

// Get fetches an arbitrary resource (avatar images) with just the UA header.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", req.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", req.URL, err)
	}
	return body, nil
}
