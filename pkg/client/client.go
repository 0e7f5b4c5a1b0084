// Package client talks to the scenario backend over its REST API.
//
// Every method is one round trip. Writes go through a Gate so the same entity
// is never written twice concurrently, nothing is retried, and nothing is
// cached: callers re-fetch after a successful write.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// DefaultTimeout bounds one round trip to the backend.
const DefaultTimeout = 30 * time.Second

// Client is a backend API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	gate       *Gate
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. with one from
// Credentials.HTTPClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit paces requests.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithGate shares a Gate between clients.
func WithGate(g *Gate) Option {
	return func(c *Client) { c.gate = g }
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
		gate:       NewGate(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Gate returns the client's in-flight guard.
func (c *Client) Gate() *Gate {
	return c.gate
}

// get reads a resource.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// write sends a mutating request while holding the gate for key.
func (c *Client) write(ctx context.Context, key, method, path string, body, out any) error {
	release, err := c.gate.Acquire(key)
	if err != nil {
		return err
	}
	defer release()
	return c.do(ctx, method, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &NetworkError{Op: op, Err: err}
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	c.logger.Debug("backend request", "op", op, "status", resp.StatusCode, "dur", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}
	return nil
}

func decodeError(op string, status int, data []byte) error {
	var body model.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Status != "" {
		return &ValidationError{Status: body.Status, Field: body.Status.Field(), HTTPStatus: status}
	}
	if status == http.StatusNotFound {
		return &ValidationError{Status: model.StatusNotFound, HTTPStatus: status}
	}
	return &NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d", status)}
}

func pageQuery(p model.PageRequest) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	return q
}

func escape(id string) string {
	return url.PathEscape(id)
}
