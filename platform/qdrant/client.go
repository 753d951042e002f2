// Package qdrant is a minimal REST client for the Qdrant vector database,
// covering the similarity search this service needs.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config configures the client. MinScore drops matches below the threshold
// server-side; zero disables it.
type Config struct {
	BaseURL    string
	APIKey     string
	Collection string
	Timeout    time.Duration
	MinScore   float64
}

// Client queries one Qdrant collection over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client for the configured collection.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Point is one scored match with its stored payload.
type Point struct {
	ID      interface{}            `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// PayloadString reads a string field from the payload, "" when absent or not
// a string.
func (p Point) PayloadString(key string) string {
	s, _ := p.Payload[key].(string)
	return s
}

type searchBody struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold float64   `json:"score_threshold,omitempty"`
}

type searchEnvelope struct {
	Result []Point `json:"result"`
}

// Search returns the points nearest to the vector, best first.
func (c *Client) Search(ctx context.Context, vector []float32, limit int) ([]Point, error) {
	if limit <= 0 {
		limit = 5
	}

	body, err := json.Marshal(searchBody{
		Vector:         vector,
		Limit:          limit,
		WithPayload:    true,
		ScoreThreshold: c.cfg.MinScore,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: marshal search: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.cfg.BaseURL, c.cfg.Collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("qdrant: search returned %d: %s", resp.StatusCode, string(detail))
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("qdrant: decode search response: %w", err)
	}
	return envelope.Result, nil
}
