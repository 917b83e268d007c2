// Package serving provides an HTTP client for the model server that scores
// the nine outcome heads from the numeric and text feature vectors.
package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/edtriage/internal/triage"
)

const defaultTimeout = 5 * time.Second

// Client calls the model server over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates a predictor client for the given endpoint. A zero timeout
// falls back to the default.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Numeric []float64 `json:"numeric"`
	Text    []float64 `json:"text"`
}

type predictResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

// Predict scores the feature vectors and returns per-outcome probabilities
// keyed by the server's outcome names. Transport and server failures are
// reported as triage.ErrOracleUnavailable; probability range and bucket
// coverage are checked by the caller.
func (c *Client) Predict(ctx context.Context, numeric, text []float64) (triage.Probabilities, error) {
	body, err := json.Marshal(predictRequest{Numeric: numeric, Text: text})
	if err != nil {
		return nil, fmt.Errorf("predict: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("predict: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %v", triage.ErrOracleUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: predict: server returned %d: %s",
			triage.ErrOracleUnavailable, resp.StatusCode, string(respBody))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: predict: decode response: %v", triage.ErrOracleUnavailable, err)
	}
	if len(out.Probabilities) == 0 {
		return nil, fmt.Errorf("%w: predict: server returned no probabilities", triage.ErrOracleUnavailable)
	}
	return triage.Probabilities(out.Probabilities), nil
}
