package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single step request.
const DefaultTimeout = 30 * time.Second

// Request is one outgoing step request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    map[string]any
}

// Response is the received reply to a Request.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

// Transport sends step requests.
type Transport struct {
	client *http.Client
}

// NewTransport returns a Transport over client. A nil client gets a default
// one with DefaultTimeout.
func NewTransport(client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Transport{client: client}
}

// Send performs req and reads the whole reply. A body is sent as JSON.
func (t *Transport) Send(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	hr, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	hr.Header.Set("Accept", "application/json")
	if body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}

	began := time.Now()
	resp, err := t.client.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", hr.Method, req.URL, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response of %s %s: %w", hr.Method, req.URL, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    make(map[string]string, len(resp.Header)),
		Body:       raw,
		Duration:   time.Since(began),
	}
	for k, vs := range resp.Header {
		out.Headers[k] = strings.Join(vs, ", ")
	}
	return out, nil
}

// Payload decodes a JSON object body. Empty bodies decode to an empty
// payload; anything that is not a JSON object is an error.
func (r *Response) Payload() (map[string]any, error) {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(r.Body, &payload); err != nil {
		return map[string]any{}, fmt.Errorf("response body is not a JSON object: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}
