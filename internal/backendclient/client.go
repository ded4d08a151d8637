// Package backendclient issues the proxy's outbound HTTP calls to the
// OpenAI-shaped or Ollama-shaped backend, applying the header, retry, and
// error-shaping policy from spec.md §4.H.
package backendclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Oct4Pie/toolbridge/internal/errkind"
)

const (
	maxRetries        = 2
	baseBackoff       = 500 * time.Millisecond
	maxBackoff        = 3100 * time.Millisecond
	maxRetryAfterWait = 3100 * time.Millisecond
)

// passthroughHeaders lists the incoming client headers forwarded verbatim
// to the backend when present.
var passthroughHeaders = []string{
	"Openai-Organization",
	"Openai-Project",
	"User-Agent",
	"X-Custom-Header",
}

// Client issues POST requests against a single backend base URL.
type Client struct {
	BaseURL    string
	ChatPath   string
	APIKey     string
	HTTPClient *http.Client
	Referer    string
	Title      string
}

// New builds a Client with the connection timeout applied to its
// underlying http.Client.
func New(baseURL, chatPath, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:  baseURL,
		ChatPath: chatPath,
		APIKey:   apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Referer: "https://github.com/Oct4Pie/toolbridge",
		Title:   "toolbridge",
	}
}

// Response wraps a successful backend reply.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Post sends body to path (resolved against BaseURL) with retry/backoff
// per spec.md §4.H, copying select headers from clientHeaders.
func (c *Client) Post(ctx context.Context, path string, body []byte, clientHeaders http.Header) (*Response, error) {
	url := c.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt, lastErr); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, errkind.New(errkind.BackendUnreachable, err.Error(), 0)
		}
		c.applyHeaders(req, clientHeaders)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = errkind.New(errkind.BackendUnreachable, fmt.Sprintf("backend unreachable: %v", err), 0)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = errkind.New(errkind.BackendUnreachable, fmt.Sprintf("reading backend response: %v", readErr), 0)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			kerr := errkind.New(errkind.BackendRateLimited, string(data), resp.StatusCode)
			kerr.RetryAfter = RetryAfterSeconds(resp.Header.Get("Retry-After"))
			lastErr = kerr
			continue
		}
		if resp.StatusCode >= 500 && attempt < maxRetries {
			lastErr = errkind.New(errkind.BackendUpstream, string(data), resp.StatusCode)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, errkind.New(errkind.Unauthorized, string(data), resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			kind := errkind.BackendUpstream
			if resp.StatusCode == http.StatusTooManyRequests {
				kind = errkind.BackendRateLimited
			}
			return nil, errkind.New(kind, string(data), resp.StatusCode)
		}

		return &Response{StatusCode: resp.StatusCode, Body: data, Header: resp.Header}, nil
	}

	return nil, lastErr
}

func (c *Client) applyHeaders(req *http.Request, clientHeaders http.Header) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.Referer)
	req.Header.Set("X-Title", c.Title)

	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	} else if clientHeaders != nil {
		if auth := clientHeaders.Get("Authorization"); auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}

	if clientHeaders == nil {
		return
	}
	for _, h := range passthroughHeaders {
		if v := clientHeaders.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
}

// sleepBackoff waits the exponential backoff for attempt, honoring a
// Retry-After hint carried on a BackendRateLimited error up to
// maxRetryAfterWait. It returns ctx.Err() if the context is cancelled
// while waiting.
func sleepBackoff(ctx context.Context, attempt int, lastErr error) error {
	wait := backoffDuration(attempt)
	if kerr, ok := lastErr.(*errkind.Error); ok && kerr.Kind == errkind.BackendRateLimited && kerr.RetryAfter > 0 {
		wait = kerr.RetryAfter
		if wait > maxRetryAfterWait {
			wait = maxRetryAfterWait
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// RetryAfterSeconds parses a Retry-After header value expressed in
// seconds, returning 0 when absent or unparsable.
func RetryAfterSeconds(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
