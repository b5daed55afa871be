// Package lookup is the HTTP client for the external username-resolution
// service. The service is an oracle from our point of view: side-effect
// free, with no billing of its own.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is the oracle's answer. Data is opaque to us and passed through to
// the caller untouched.
type Result struct {
	Found bool            `json:"found"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Search resolves a normalized username. Any non-200 answer is an
// infrastructure error, not a miss: misses come back as 200 with found=false.
func (c *Client) Search(ctx context.Context, username string) (*Result, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("lookup client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	reqURL := fmt.Sprintf("%s/api/search?username=%s", base, url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
