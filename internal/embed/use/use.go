// Package use provides an HTTP client for the sentence-embedding server that
// hosts the frozen universal sentence encoder.
package use

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/linnemanlabs/edtriage/internal/triage"
)

// Dim is the embedding width the downstream predictor was trained against.
const Dim = 512

const defaultTimeout = 5 * time.Second

// Client calls the embedding server over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates an embedding client for the given endpoint. A zero timeout
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

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed maps free-text to its fixed-width vector. The text is NFC-normalized
// and trimmed first so byte-level variants of the same complaint embed
// identically. Transport and server failures are reported as
// triage.ErrOracleUnavailable.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	text = norm.NFC.String(strings.TrimSpace(text))

	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", triage.ErrOracleUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: embed: server returned %d: %s",
			triage.ErrOracleUnavailable, resp.StatusCode, string(respBody))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: embed: decode response: %v", triage.ErrOracleUnavailable, err)
	}
	if len(out.Embedding) != Dim {
		return nil, fmt.Errorf("%w: embed: server returned %d dimensions, want %d",
			triage.ErrOracleUnavailable, len(out.Embedding), Dim)
	}
	return out.Embedding, nil
}
