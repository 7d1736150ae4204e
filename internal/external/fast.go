package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// FastClient talks to the specialized classification service over HTTP JSON.
type FastClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewFastClient creates a client for the fast classification service.
func NewFastClient(baseURL string, logger *slog.Logger) (*FastClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("fast classifier base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FastClient{
		baseURL: baseURL,
		logger:  logger,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Classify posts the request to the service. The caller's context carries
// the timeout; no client-side default is imposed on top of it.
func (c *FastClient) Classify(ctx context.Context, request Request) (Response, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("fast classifier error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var response Response
	if err := json.Unmarshal(respBody, &response); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if response.CategoryID == "" {
		return Response{}, fmt.Errorf("no category in response")
	}
	if response.ElapsedMs == 0 {
		response.ElapsedMs = time.Since(start).Milliseconds()
	}

	c.logger.Debug("fast classifier responded",
		"category", response.CategoryID,
		"elapsed_ms", response.ElapsedMs)

	return response, nil
}

// Close releases idle connections.
func (c *FastClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
