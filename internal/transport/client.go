// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ErrTransport is the sentinel matched by errors.Is for any download
// failure (network error, non-2xx status, write failure).
var ErrTransport = errors.New("download failed")

// defaultTimeout bounds a whole download, connection setup included.
const defaultTimeout = 10 * time.Minute

type (
	// Client downloads artifacts over HTTP(S).
	Client struct {
		httpClient *http.Client
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)

	// TransportError reports a failed download. It matches ErrTransport
	// via errors.Is and unwraps to the underlying cause when one exists.
	TransportError struct {
		URL    string // redacted: no query or fragment
		Status int    // HTTP status, 0 for pre-response failures
		Cause  error
	}
)

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("downloading %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause, if any.
func (e *TransportError) Unwrap() error { return e.Cause }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy
// configurations. The caller is responsible for its TLS settings.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Client) { t.httpClient = c }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(t *Client) { t.userAgent = ua }
}

// WithTimeout overrides the whole-download timeout on the default HTTP
// client. Applied after WithHTTPClient it adjusts the supplied client.
func WithTimeout(d time.Duration) Option {
	return func(t *Client) {
		if d > 0 {
			t.httpClient.Timeout = d
		}
	}
}

// NewClient creates a Client. The default HTTP client refuses TLS below
// version 1.2.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		userAgent: "imgcraft/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches rawURL into destPath. The body streams into a temp
// file in destPath's directory and is renamed into place only after a
// complete read, so a crash or network failure never leaves a truncated
// destination. Returns a *TransportError on any failure.
func (c *Client) Download(ctx context.Context, rawURL, destPath string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return &TransportError{URL: redactURL(rawURL), Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: redactURL(rawURL), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return &TransportError{URL: redactURL(rawURL), Status: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".partial-*")
	if err != nil {
		return &TransportError{URL: redactURL(rawURL), Cause: err}
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return &TransportError{URL: redactURL(rawURL), Cause: err}
	}
	if err = tmp.Close(); err != nil {
		return &TransportError{URL: redactURL(rawURL), Cause: err}
	}

	if err = os.Rename(tmp.Name(), destPath); err != nil {
		return &TransportError{URL: redactURL(rawURL), Cause: err}
	}
	return nil
}

// redactURL strips query parameters and fragments for safe inclusion in
// error messages, preventing accidental exposure of signed URL tokens.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
