// Package atlassian is the shared REST transport for Jira and
// Confluence Cloud: basic auth, JSON bodies, and bounded retries on
// throttling and server errors. Error-kind mapping onto the linkage
// taxonomy happens in the consuming packages — this layer only reports
// HTTP status.
package atlassian

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

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
)

// StatusError is a non-2xx response from the Atlassian API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("atlassian api: status %d: %s", e.StatusCode, e.Body)
}

// Client is a minimal Atlassian Cloud REST client.
type Client struct {
	baseURL string
	email   string
	token   string
	httpc   *http.Client
}

// New returns a client for one Atlassian product base URL.
func New(baseURL, email, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Do performs one API call, marshaling body in and out as JSON. Requests
// are retried on 429 and 5xx with backoff; all other failures surface
// immediately as *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(errors.Wrap(err, "building request"))
			}
			req.SetBasicAuth(c.email, c.token)
			req.Header.Set("Accept", "application/json")
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return errors.Wrapf(err, "%s %s", method, path)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return errors.Wrap(err, "reading response body")
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				serr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
				if retryable(resp.StatusCode) {
					return serr
				}
				return retry.Unrecoverable(serr)
			}
			if out != nil && len(data) > 0 {
				if err := json.Unmarshal(data, out); err != nil {
					return retry.Unrecoverable(errors.Wrap(err, "decoding response body"))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// EscapeQueryValue escapes a user-supplied value for interpolation into
// a quoted JQL or CQL string literal.
func EscapeQueryValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode
	}
	return 0
}
