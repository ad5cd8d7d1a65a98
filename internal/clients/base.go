// Package clients holds the HTTP clients for the authoritative remote
// services: bid acceptance, operator actions, timer control, and the lot
// catalog used for full refreshes.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrSubmitTimeout marks a request that received no response in time. The
// operation may or may not have landed server-side; callers must re-derive
// truth from the next remote event instead of guessing.
var ErrSubmitTimeout = errors.New("request timed out awaiting response")

// BaseClient wraps the shared HTTP plumbing for the service clients.
type BaseClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewBaseClient creates a client rooted at baseURL.
func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent with every request.
func (c *BaseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout bounds every request made through this client.
func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// DoJSON issues a request with a JSON body (nil for none) and decodes the
// JSON response into out (nil to discard). Timeouts surface as
// ErrSubmitTimeout.
func (c *BaseClient) DoJSON(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s %s: %w", method, endpoint, ErrSubmitTimeout)
		}
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, string(responseBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
