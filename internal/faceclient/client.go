// Package faceclient calls the external biometric verification service.
// The service owns the matching algorithm and the fixed anomaly cutoff
// (anomaly_detected = anomaly_score > 0.8); the engine stores its output
// verbatim and never recomputes either.
package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VerifyResult is the biometric verify contract consumed at check-in.
type VerifyResult struct {
	MatchScore      float64 `json:"match_score"`
	AnomalyScore    float64 `json:"anomaly_score"`
	AnomalyDetected bool    `json:"anomaly_detected"`
}

// Client calls the face verification microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set, Verify returns fixed scores so
// dev and test runs are deterministic without the service.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // face processing can take time
		},
	}
}

// Verify runs a 1:1 check of the photo against the student's enrolled
// face and returns the match and anomaly scores.
func (c *Client) Verify(ctx context.Context, photoURL, studentID string) (*VerifyResult, error) {
	if c.Skip {
		return &VerifyResult{MatchScore: 0.95, AnomalyScore: 0.05}, nil
	}
	if photoURL == "" {
		return nil, fmt.Errorf("photo url required")
	}

	body, _ := json.Marshal(map[string]string{
		"image_url":  photoURL,
		"student_id": studentID,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Health checks service availability.
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
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}
