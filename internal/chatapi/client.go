// Package chatapi speaks the widget's JSON envelope protocol with a chat endpoint.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chat-widget/internal/config"
)

// maxBodySize bounds how much of a response body is read
const maxBodySize = 1 << 20

// Client handles communication with the chat endpoint
type Client struct {
	chatURL    string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a new chat client. endpoint is the configured base
// address; "/chat" is appended unless already present.
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	chatURL, err := config.ChatURL(endpoint)
	if err != nil {
		return nil, err
	}
	return &Client{
		chatURL:    chatURL,
		baseURL:    strings.TrimSuffix(chatURL, "/chat"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}, nil
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Chat sends one request envelope and decodes the result. Errors are
// *RateLimitedError, *StatusError or *TransportError.
func (c *Client) Chat(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &TransportError{Op: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "request failed", Err: err, Timeout: c.timeout}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: "failed to read response", Err: err, Timeout: c.timeout}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{Detail: rateLimitDetail(body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var errBody ErrorBody
		_ = json.Unmarshal(body, &errBody)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Detail:     errBody.Detail,
		}
	}

	var chatResp Response
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &TransportError{Op: "failed to parse response", Err: err}
	}
	return &chatResp, nil
}

// HealthCheck verifies that the endpoint's /health route answers
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat endpoint is unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat endpoint health returned status %d", resp.StatusCode)
	}
	return nil
}

// rateLimitDetail extracts the human readable detail of a 429 body
func rateLimitDetail(body []byte) string {
	var errBody ErrorBody
	if err := json.Unmarshal(body, &errBody); err != nil {
		return DefaultRateLimitMessage
	}
	if detail := strings.TrimSpace(errBody.Detail); detail != "" {
		return detail
	}
	return DefaultRateLimitMessage
}

// statusText returns the reason phrase without the numeric code
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = strconv.Itoa(resp.StatusCode)
	}
	return text
}
