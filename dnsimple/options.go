package dnsimple

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	timeout    time.Duration
	token      string
	userAgent  string
	httpClient Doer
	logger     zerolog.Logger
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout:   30 * time.Second,
		userAgent: DefaultUserAgent,
		logger:    zerolog.Nop(),
	}
}

// WithTimeout sets the HTTP client timeout. It has no effect when a custom
// Doer is supplied with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithToken sets the OAuth or API access token sent as a bearer token.
func WithToken(token string) Option {
	return func(o *clientOptions) {
		o.token = token
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithHTTPClient replaces the transport used to send requests.
func WithHTTPClient(doer Doer) Option {
	return func(o *clientOptions) {
		o.httpClient = doer
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}
