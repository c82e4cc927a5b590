// Package cma is the client for the target space's content management API.
// It exposes the semantic operations the migration driver needs (create,
// fetch, publish, process) as single HTTP calls so each one can be admitted
// individually through the rate gate.
package cma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultHost    = "https://api.contentful.com"
	DefaultTimeout = 30 * time.Second

	// connectTimeout bounds the initial session handshake retries.
	connectTimeout = 2 * time.Minute
)

// Client is an authenticated session against one space/environment.
type Client struct {
	SpaceID       string
	EnvironmentID string
	Token         string
	BaseURL       string
	HTTPClient    *http.Client

	// OnSecondRemaining, when set, receives the per-second remaining
	// budget the service reports on each response. The rate limiter uses
	// it to clamp its bucket when the budget is shared with other
	// clients.
	OnSecondRemaining func(float64)
}

// NewClient creates a client for the given space and environment.
func NewClient(spaceID, environmentID, token string) *Client {
	return &Client{
		SpaceID:       spaceID,
		EnvironmentID: environmentID,
		Token:         token,
		BaseURL:       DefaultHost,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithBaseURL returns a new client with a custom API host (for testing or
// self-hosted installations).
func (c *Client) WithBaseURL(baseURL string) *Client {
	return &Client{
		SpaceID:           c.SpaceID,
		EnvironmentID:     c.EnvironmentID,
		Token:             c.Token,
		BaseURL:           baseURL,
		HTTPClient:        c.HTTPClient,
		OnSecondRemaining: c.OnSecondRemaining,
	}
}

// envPath builds a path under the space's environment.
func (c *Client) envPath(segments ...string) string {
	p := "/spaces/" + url.PathEscape(c.SpaceID) + "/environments/" + url.PathEscape(c.EnvironmentID)
	for _, s := range segments {
		p += "/" + s
	}
	return p
}

// Connect verifies the space is reachable with the configured credentials,
// retrying transient failures with exponential backoff. Rate-limit errors
// are not retried here; they propagate so the admission controller's
// cooldown applies.
func (c *Client) Connect(ctx context.Context) error {
	op := func() error {
		err := c.request(ctx, http.MethodGet, "/spaces/"+url.PathEscape(c.SpaceID), nil, nil, nil)
		if err != nil && IsRateLimited(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(connectTimeout)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("connecting to space %s: %w", c.SpaceID, err)
	}
	return nil
}

// request performs one HTTP call. headers may carry the version and
// content-type headers specific operations require; out, when non-nil,
// receives the decoded response body.
func (c *Client) request(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/vnd.contentful.management.v1+json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	remaining, hasRemaining := secondRemaining(resp.Header)
	if hasRemaining && c.OnSecondRemaining != nil {
		c.OnSecondRemaining(remaining)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode:         resp.StatusCode,
			Message:            errorMessage(respBody),
			SecondRemaining:    remaining,
			HasSecondRemaining: hasRemaining,
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func secondRemaining(h http.Header) (float64, bool) {
	raw := h.Get("X-Contentful-RateLimit-Second-Remaining")
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// errorMessage extracts a human-readable message from an error body,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(body)
}

// collection is the list envelope the API wraps result sets in.
type collection[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

func versionHeader(version int) map[string]string {
	return map[string]string{"X-Contentful-Version": strconv.Itoa(version)}
}
