package dnsimple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.dnsimple.com"
	// SandboxBaseURL is the sandbox API endpoint.
	SandboxBaseURL = "https://api.sandbox.dnsimple.com"
	// DefaultUserAgent is sent unless WithUserAgent overrides it.
	DefaultUserAgent = "dnscerts"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client represents a DNSimple API client
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient Doer
	logger     zerolog.Logger
}

// NewClient creates a new DNSimple client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      options.token,
		userAgent:  options.userAgent,
		httpClient: httpClient,
		logger:     options.logger,
	}, nil
}

// BaseURL returns the API endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newHTTPRequest converts a Request into an *http.Request bound to ctx.
func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL(c.baseURL), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	return httpReq, nil
}

// send performs the request and returns the raw status and body. Transport
// errors are returned unwrapped.
func (c *Client) send(ctx context.Context, req Request) (int, []byte, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", httpReq.URL.String()).
		Msg("Making DNSimple API request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("DNSimple API response")

	return resp.StatusCode, body, nil
}

// do dispatches req and maps the response into a typed envelope.
func do[T any](ctx context.Context, c *Client, req Request) (*Response[T], error) {
	status, body, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return mapResponse[T](status, body)
}

// TestConnection verifies the token by calling the whoami endpoint and
// returns the account or user it belongs to.
func (c *Client) TestConnection(ctx context.Context) (*WhoamiData, error) {
	resp, err := c.Whoami(ctx)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
