// Package gateway is the single outbound path to the marketplace API. It
// attaches the session's bearer token and ends the session when the API
// answers 401.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sessions is the part of the session store the gateway needs.
type Sessions interface {
	Token() string
	Clear(ctx context.Context)
}

// Redirector performs a full navigation.
type Redirector interface {
	Redirect(path string)
}

// LoginPath is where the client is sent after an authentication failure.
const LoginPath = "/login"

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Client sends requests to one base URL.
type Client struct {
	base     *url.URL
	http     *http.Client
	sessions Sessions
	nav      Redirector
	logger   zerolog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Sessions   Sessions
	Redirector Redirector
	Logger     zerolog.Logger
}

// New creates a client bound to opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	if opts.Sessions == nil || opts.Redirector == nil {
		return nil, fmt.Errorf("gateway requires a session store and a redirector")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		base:     base,
		http:     hc,
		sessions: opts.Sessions,
		nav:      opts.Redirector,
		logger:   opts.Logger,
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Do sends an authenticated request and decodes a JSON response into out
// (if non-nil). A 401 clears the session, redirects to the login view and
// returns ErrUnauthorized.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	status, err := c.send(ctx, req, c.sessions.Token(), out)
	if status == http.StatusUnauthorized {
		c.logger.Info().
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("api rejected session, logging out")
		c.sessions.Clear(ctx)
		c.nav.Redirect(LoginPath)
		return ErrUnauthorized
	}
	return err
}

// DoAnonymous sends a request without a token and without the 401
// interceptor. Used for login and registration, where 401 means bad
// credentials rather than an expired session.
func (c *Client) DoAnonymous(ctx context.Context, req Request, out any) error {
	_, err := c.send(ctx, req, "", out)
	return err
}

func (c *Client) send(ctx context.Context, req Request, token string, out any) (int, error) {
	httpReq, err := c.newRequest(ctx, req, token)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: read body: %w", req.Method, req.Path, err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newAPIError(resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: decode response: %w", req.Method, req.Path, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, req Request, token string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}
