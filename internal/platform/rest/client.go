// Package rest holds the HTTP plumbing shared by the exchange connectors:
// a JSON GET helper that classifies failures into network-class and
// exchange-class errors, and a thread-safe table of listed markets.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// maxErrorBody bounds how much of an error response is echoed into errors.
const maxErrorBody = 512

// DefaultUserAgent is sent with every request. Some venues reject requests
// without one.
const DefaultUserAgent = "arbwatch/1.0"

// Client is a minimal JSON-over-HTTP client bound to one API root.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A zero timeout defaults to 30s;
// callers normally also bound each request through its context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// GetJSON issues GET baseURL+path?params and decodes the body into out.
//
// Transport failures, 5xx and 429 responses wrap domain.ErrNetwork. Other
// non-2xx responses and undecodable bodies wrap domain.ErrExchange.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrExchange, path, err)
	}
	return nil
}

// Get issues GET baseURL+path?params and returns the raw body of a 2xx
// response.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	full := c.baseURL + path
	if len(params) > 0 {
		full += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrNetwork, err)
	}

	if err := CheckStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// CheckStatus converts a non-2xx status into a classified error.
func CheckStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > maxErrorBody {
		bodyStr = bodyStr[:maxErrorBody] + "..."
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s", domain.ErrNetwork, domain.ErrRateLimited, bodyStr)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetwork, statusCode, bodyStr)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %s", domain.ErrExchange, domain.ErrNotFound, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrExchange, statusCode, bodyStr)
	}
}

// IsNetwork reports whether err is a network-class failure.
func IsNetwork(err error) bool { return errors.Is(err, domain.ErrNetwork) }
