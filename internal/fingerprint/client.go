package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EnrollResult is the bridge's answer to an enrollment.
type EnrollResult struct {
	FingerprintID string `json:"fingerprint_id"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
}

// Client calls the HTTP bridge in front of the fingerprint reader.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set every call succeeds without a reader.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 15 * time.Second, // enrollment waits for finger placement
		},
	}
}

// Health checks if the bridge is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("fingerprint bridge unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("fingerprint bridge unhealthy: %s", resp.Status)
	}
	return nil
}

// Enroll binds reader slot fingerprintID to a member name.
func (c *Client) Enroll(ctx context.Context, fingerprintID, name string) error {
	res, err := c.EnrollWithResult(ctx, fingerprintID, name)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("fingerprint enroll rejected: %s", res.Message)
	}
	return nil
}

// EnrollWithResult enrolls and returns the bridge's full response.
func (c *Client) EnrollWithResult(ctx context.Context, fingerprintID, name string) (*EnrollResult, error) {
	if c.Skip {
		return &EnrollResult{FingerprintID: fingerprintID, Success: true, Message: "enrolled (mock)"}, nil
	}
	if fingerprintID == "" {
		return nil, fmt.Errorf("fingerprint id required")
	}

	body, _ := json.Marshal(map[string]string{"fingerprint_id": fingerprintID, "name": name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/enroll", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fingerprint bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fingerprint bridge error %s: %s", resp.Status, string(bodyBytes))
	}

	var out EnrollResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
