// Package apiclient talks to the tracker REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracker/web/internal/model"
)

// RetryLimit is how many extra attempts an authenticated client makes after a 5xx.
const RetryLimit = 2

const maxBodyBytes = 8 << 20

var retryMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retries int
	backoff func(attempt int) time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = timeout
		c.http = &hc
	}
}

// WithRetryBackoff replaces the delay before retry attempt n (1-based).
func WithRetryBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = fn
	}
}

// New returns an unauthenticated client. It never retries.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy that sends token as a bearer credential and retries
// server errors up to RetryLimit times.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	clone.retries = RetryLimit
	return &clone
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(300*(1<<(attempt-1))) * time.Millisecond
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, nil, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, nil, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, nil, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do sends one logical request. body is JSON-encoded when non-nil and out, when
// non-nil, receives the decoded 2xx body. Empty 2xx bodies leave out untouched.
func (c *Client) Do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindEncode, Method: method, Path: path, Err: err}
		}
		payload = encoded
	}

	attempts := 1
	if retryMethods[method] {
		attempts += c.retries
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	for attempt := 1; ; attempt++ {
		resp, err := c.send(ctx, method, target, payload, header)
		if err != nil {
			return &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
		}
		if resp.StatusCode >= 500 && attempt < attempts {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return &Error{Kind: KindTransport, Method: method, Path: path, Err: ctx.Err()}
			case <-time.After(c.backoff(attempt)):
			}
			continue
		}
		return c.handle(resp, method, path, out)
	}
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, header http.Header) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

func (c *Client) handle(resp *http.Response, method, path string, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Kind: KindHTTP, Method: method, Path: path, Status: resp.StatusCode}
		var body model.ErrorResponse
		if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &body) == nil {
			apiErr.Body = &body
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}
	return nil
}
