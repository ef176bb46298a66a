// Package postgrest is a typed client for the registry's PostgREST data API.
//
// Reads return (value, error). Mutations return a MutationResult so the
// collection editor can treat every outcome the same way, whatever status
// code the server produced.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	tokens  TokenSource
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests use httptest's).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where the bearer credential comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithToken is WithTokenSource(StaticToken(token)).
func WithToken(token string) Option {
	return WithTokenSource(StaticToken(token))
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds each request. Without it only the caller's context
// limits a request. The timeout is set on a copy of the HTTP client, so a
// client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		tokens:  StaticToken(""),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	op     string
	method string
	path   string // relative to baseURL, including the query string
	body   any
	prefer []string
	// auth marks mutating calls: they fail fast without a usable credential.
	auth bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, r request) (*response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &Error{Op: r.op, Kind: ErrUnauthorized, Message: err.Error()}
	}
	if r.auth {
		if reason := checkCredential(token, c.now()); reason != "" {
			return nil, &Error{Op: r.op, Kind: ErrUnauthorized, Message: reason}
		}
	}

	var reader io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, &Error{Op: r.op, Kind: ErrValidation, Message: fmt.Sprintf("encode payload: %v", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+"/"+strings.TrimLeft(r.path, "/"), reader)
	if err != nil {
		return nil, &Error{Op: r.op, Kind: ErrTransport, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(r.prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(r.prefer, ","))
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	started := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "postgrest request failed", "op", r.op, "method", r.method, "path", r.path, "error", err)
		return nil, &Error{Op: r.op, Kind: ErrTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: r.op, Status: resp.StatusCode, Kind: ErrTransport, Message: fmt.Sprintf("read body: %v", err)}
	}
	c.logger.DebugContext(ctx, "postgrest request",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", c.now().Sub(started),
	)

	if resp.StatusCode >= 400 {
		var apiErr apiErrorBody
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{
			Op:      r.op,
			Status:  resp.StatusCode,
			Code:    apiErr.Code,
			Message: msg,
			Kind:    classify(resp.StatusCode, apiErr.Code),
		}
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// decodeRows decodes a JSON array response. An empty body decodes to nil.
func decodeRows[T any](op string, resp *response) ([]T, error) {
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil, nil
	}
	var rows []T
	if err := json.Unmarshal(resp.body, &rows); err != nil {
		return nil, &Error{Op: op, Status: resp.status, Kind: ErrTransport, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return rows, nil
}

// RPC calls a database function exposed under /rpc. out may be nil.
func (c *Client) RPC(ctx context.Context, fn string, args any, out any) error {
	op := "rpc " + fn
	resp, err := c.do(ctx, request{op: op, method: http.MethodPost, path: "rpc/" + fn, body: args})
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &Error{Op: op, Status: resp.status, Kind: ErrTransport, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
