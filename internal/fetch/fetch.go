package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/evan-buss/opds-client/internal/profile"
	"github.com/evan-buss/opds-client/internal/reqctx"
	"github.com/google/uuid"
)

const (
	// UserAgent identifies the client on every request
	UserAgent = "opds-client/1.0"

	acceptHeader = "application/atom+xml, application/xml, text/xml, */*"

	// previewBytes is how much of an unexpected body is carried in error
	// diagnostics
	previewBytes = 200
)

// Defaults for a zero-configured Client
const (
	DefaultTimeout    = 60 * time.Second
	DefaultAttempts   = 3
	DefaultRetryDelay = 5 * time.Second
)

// Client fetches OPDS resources with basic auth and retry on transient
// transport failures. The zero value is not usable; call New.
type Client struct {
	// Timeout bounds each individual attempt. There is no overall
	// deadline across retries beyond the caller's context.
	Timeout time.Duration
	// Attempts is the total number of tries, including the first
	Attempts int
	// RetryDelay is the fixed pause between attempts
	RetryDelay time.Duration

	clientOnce sync.Once
	httpClient *http.Client
}

// New returns a Client with the default timeout and retry policy
func New() *Client {
	c := &Client{
		Timeout:    DefaultTimeout,
		Attempts:   DefaultAttempts,
		RetryDelay: DefaultRetryDelay,
	}
	return c
}

// ContentTypeError means the server answered with HTML where a feed or
// file was expected, usually a wrong URL or an auth wall. It is terminal,
// never retried.
type ContentTypeError struct {
	ContentType string
	Preview     string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf(
		"server returned HTML instead of XML (Content-Type: %s); check the URL and authentication settings. Response preview: %s",
		e.ContentType, e.Preview,
	)
}

// StatusError carries a non-success HTTP status with the server's own
// diagnostic body preview, verbatim.
type StatusError struct {
	StatusCode int
	Status     string
	Preview    string
}

func (e *StatusError) Error() string {
	if e.Preview == "" {
		return fmt.Sprintf("server returned %s", e.Status)
	}
	return fmt.Sprintf("server returned %s: %s", e.Status, e.Preview)
}

// Fetch retrieves url fully into memory, authenticating per the profile
func (c *Client) Fetch(ctx context.Context, url string, server profile.Server) ([]byte, error) {
	resp, err := c.request(ctx, url, server)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Open retrieves url as a stream. The caller owns the returned body and
// must close it.
func (c *Client) Open(ctx context.Context, url string, server profile.Server) (io.ReadCloser, error) {
	resp, err := c.request(ctx, url, server)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// request runs the retry loop. Only transport-level failures are retried;
// status and content-type errors surface immediately. The final attempt's
// error is returned when every attempt fails.
func (c *Client) request(ctx context.Context, url string, server profile.Server) (*http.Response, error) {
	log := reqctx.Logger(ctx).With(
		slog.Group("fetch",
			slog.String("id", uuid.New().String()),
			slog.String("url", url),
		),
	)

	var lastErr error
	for attempt := 1; attempt <= c.attempts(); attempt++ {
		resp, err := c.do(ctx, url, server)
		if err == nil {
			log.Debug("Fetched", slog.Int("attempt", attempt), slog.Int("status", resp.StatusCode))
			return resp, nil
		}
		if !transient(err) {
			log.Warn("Fetch failed", slog.Int("attempt", attempt), slog.Any("error", err))
			return nil, err
		}

		lastErr = err
		log.Warn("Transient fetch failure", slog.Int("attempt", attempt), slog.Any("error", err))

		if attempt < c.attempts() {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay()):
			}
		}
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string, server profile.Server) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", acceptHeader)
	if server.UseBasicAuth() {
		req.SetBasicAuth(server.Username, server.Password)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := readPreview(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Preview:    preview,
		}
	}

	if contentType := resp.Header.Get("Content-Type"); strings.Contains(contentType, "text/html") {
		preview := readPreview(resp.Body)
		resp.Body.Close()
		return nil, &ContentTypeError{ContentType: contentType, Preview: preview}
	}

	return resp, nil
}

func readPreview(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, previewBytes))
	return strings.TrimSpace(string(data))
}

// transient reports whether an attempt failed at the transport layer
// (connection error, timeout) and is worth retrying. Typed feed errors and
// a cancelled context are terminal.
func transient(err error) bool {
	var ctErr *ContentTypeError
	var stErr *StatusError
	if errors.As(err, &ctErr) || errors.As(err, &stErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// client builds the underlying http.Client on first use, once the timeout
// has been configured. One Client is shared between the catalog session and
// the download orchestrator, so initialization must be safe under
// concurrent requests.
func (c *Client) client() *http.Client {
	c.clientOnce.Do(func() {
		c.httpClient = &http.Client{Timeout: c.timeout()}
	})
	return c.httpClient
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Client) attempts() int {
	if c.Attempts > 0 {
		return c.Attempts
	}
	return DefaultAttempts
}

func (c *Client) retryDelay() time.Duration {
	if c.RetryDelay > 0 {
		return c.RetryDelay
	}
	return DefaultRetryDelay
}
