// Package client talks to the library REST backend. It attaches the stored
// bearer token to every request and turns non-2xx responses into *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"library-client/library"
)

// DefaultTimeout bounds every request unless the caller configures another.
const DefaultTimeout = 10 * time.Second

// TokenStore is the session the client reads its token from and clears on
// authentication failures.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	Start(ctx context.Context, token string, profile *library.User) error
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API rooted at baseURL (for example
// http://localhost:8080/api). tokens may be nil for anonymous use.
func New(baseURL string, timeout time.Duration, tokens TokenStore, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	sentToken := false
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("read session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			sentToken = true
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency_ms", time.Since(start)).
		Msg("HTTP request")

	if resp.StatusCode >= http.StatusBadRequest {
		return c.failure(ctx, resp.StatusCode, data, sentToken)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok && !isJSON(resp.Header) {
		*s = string(data)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// failure builds the error for a non-2xx response. Authentication failures
// also sign the user out locally; when the rejected request carried a
// token the message asks for a new login instead of echoing the backend.
func (c *Client) failure(ctx context.Context, status int, body []byte, sentToken bool) error {
	apiErr := &APIError{StatusCode: status, Message: errorMessage(status, body)}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if c.tokens != nil {
			if err := c.tokens.Clear(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("could not clear session after auth failure")
			}
		}
		if sentToken {
			apiErr.Message = reloginMessage
		}
	}
	c.logger.Warn().Int("status", status).Str("message", apiErr.Message).Msg("backend returned an error")
	return apiErr
}

func isJSON(h http.Header) bool {
	return strings.Contains(h.Get("Content-Type"), "application/json")
}
