// Package apiclient sends requests to the finance REST API. It attaches the
// stored bearer credential to every call and owns expiry handling: a 401
// clears the credential and notifies listeners before the error is returned.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// HTTPDoer defines the http.Client subset the client needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

const maxResponseBody = 1 << 20

// Request describes one REST call. Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Client struct {
	baseURL string
	http    HTTPDoer
	store   storage.TokenStore
	logger  *slog.Logger

	mu        sync.RWMutex
	listeners map[int]func()
	nextID    int
}

// New builds a client for baseURL. A nil httpClient gets a default
// *http.Client with the given timeout.
func New(baseURL string, httpClient HTTPDoer, store storage.TokenStore) *Client {
	if httpClient == nil {
		httpClient = NewDefaultHTTPClient(10 * time.Second)
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		store:     store,
		logger:    slog.Default().With(log.FieldComponent, log.ComponentAPI),
		listeners: make(map[int]func()),
	}
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// BaseURL returns the API origin requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// OnUnauthorized registers fn to run after any 401 response, once the stored
// credential has been cleared. The returned func removes the listener.
func (c *Client) OnUnauthorized(fn func()) (remove func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Send performs req. Non-2xx replies come back as *APIError; 401s also match
// ErrUnauthorized. Failures before a response arrives wrap ErrTransport.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.store != nil {
		token, err := c.store.Get(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "Reading stored token failed, sending without credential", "error", err)
		} else if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			log.FieldMethod, method, log.FieldPath, req.Path, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, req.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s response: %v", ErrTransport, method, req.Path, err)
	}

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, method,
		log.FieldPath, req.Path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, method, req.Path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:     method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Detail:     parseDetail(respBody),
		}
		if apiErr.IsServerError() {
			c.logger.ErrorContext(ctx, "API server error",
				log.FieldMethod, method,
				log.FieldPath, req.Path,
				log.FieldStatusCode, resp.StatusCode,
				"detail", apiErr.Detail)
		}
		return nil, apiErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// handleUnauthorized fires for every 401, whichever call produced it.
func (c *Client) handleUnauthorized(ctx context.Context, method, path string) {
	c.logger.WarnContext(ctx, "API rejected credential, clearing stored token",
		log.FieldMethod, method, log.FieldPath, path)

	if c.store != nil {
		if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
			c.logger.ErrorContext(ctx, "Clearing stored token failed", "error", err)
		}
	}

	c.mu.RLock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
