package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/config-updater/internal/logger"
)

// DefaultTimeout bounds a whole fetch, including reading the body.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNetwork marks transport failures: DNS, connect, TLS, timeouts, truncated bodies.
	ErrNetwork = errors.New("network error")
	// ErrBadHTTPStatus matches every StatusError.
	ErrBadHTTPStatus = errors.New("unexpected http status")
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	// URL is the requested address.
	URL string
	// Code is the HTTP status code.
	Code int
	// Status is the status line text.
	Status string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}

// Unwrap lets errors.Is match ErrBadHTTPStatus.
func (e *StatusError) Unwrap() error {
	return ErrBadHTTPStatus
}

// Client downloads documents over HTTP(S).
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying client, keeping its own timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New creates a Client with DefaultTimeout.
func New(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Fetch downloads url with the given User-Agent and returns the body.
func (c *Client) Fetch(ctx context.Context, url, userAgent string) ([]byte, error) {
	defer c.httpClient.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{
			URL:    url,
			Code:   response.StatusCode,
			Status: response.Status,
		}
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	logger.InfoKV(ctx, "Configuration downloaded", "size", humanize.Bytes(uint64(len(data))), "bytes", len(data))

	return data, nil
}
