package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/model"
)

const defaultLLMEndpoint = "https://api.anthropic.com/v1/messages"

// LLMConfig holds configuration for the LLM classifier client.
type LLMConfig struct {
	APIKey      string
	Model       string
	Endpoint    string
	MaxTokens   int
	Temperature float64
	RateLimit   int
	CacheTTL    time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// LLMClient is the most expensive cascade layer: a hosted LLM scoring every
// catalog category. Responses are cached by normalized text and calls are
// rate limited.
type LLMClient struct {
	httpClient  *http.Client
	cache       *responseCache
	limiter     *rateLimiter
	logger      *slog.Logger
	categories  []model.Category
	apiKey      string
	llmModel    string
	endpoint    string
	retryOpts   common.RetryOptions
	maxTokens   int
	temperature float64
}

// NewLLMClient creates the LLM classifier client.
func NewLLMClient(cfg LLMConfig, categories []model.Category, logger *slog.Logger) (*LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultLLMEndpoint
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 2
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 500 * time.Millisecond
	}

	return &LLMClient{
		apiKey:      cfg.APIKey,
		llmModel:    cfg.Model,
		endpoint:    cfg.Endpoint,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		categories:  categories,
		retryOpts:   retryOpts,
		cache:       newResponseCache(cfg.CacheTTL),
		limiter:     newRateLimiter(cfg.RateLimit),
		logger:      logger,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Classify scores the description against every catalog category via the
// LLM. Identical normalized descriptions within the cache TTL skip the
// network entirely.
func (c *LLMClient) Classify(ctx context.Context, request Request) (Response, error) {
	if cached, found := c.cache.get(request.NormalizedText); found {
		c.logger.Debug("LLM cache hit", "text", request.NormalizedText)
		return cached, nil
	}

	if err := c.limiter.wait(ctx); err != nil {
		return Response{}, fmt.Errorf("rate limit error: %w", err)
	}

	start := time.Now()

	var response Response
	err := common.WithRetry(ctx, func() error {
		resp, callErr := c.call(ctx, request)
		if callErr != nil {
			c.logger.Warn("LLM classification attempt failed", "error", callErr)
			return &common.RetryableError{Err: callErr, Retryable: true}
		}
		response = resp
		return nil
	}, c.retryOpts)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}

	response.ElapsedMs = time.Since(start).Milliseconds()
	c.cache.set(request.NormalizedText, response)

	c.logger.Info("LLM classified",
		"category", response.CategoryID,
		"elapsed_ms", response.ElapsedMs)

	return response, nil
}

func (c *LLMClient) call(ctx context.Context, request Request) (Response, error) {
	requestBody := map[string]any{
		"model":       c.llmModel,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      "You are a Vietnamese financial transaction classifier. Respond only with JSON in the exact format requested.",
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": c.buildPrompt(request),
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(string(jsonBody)))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("LLM API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp messagesResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return Response{}, fmt.Errorf("no content in response")
	}

	return c.parseScores(apiResp.Content[0].Text)
}

// buildPrompt asks the model to score every category so the calibrator has a
// full raw vector to work with, not just a single pick.
func (c *LLMClient) buildPrompt(request Request) string {
	var catalog strings.Builder
	for _, cat := range c.categories {
		fmt.Fprintf(&catalog, "- %s: %s (%s)\n", cat.ID, cat.Name, cat.Type)
	}

	details := fmt.Sprintf("Description: %s", request.NormalizedText)
	if request.Amount != nil {
		details += fmt.Sprintf("\nAmount: %.0f VND", *request.Amount)
	}

	return fmt.Sprintf(`Score how well this Vietnamese financial transaction fits EVERY category below.

Transaction:
%s

Categories:
%s
Respond with ONLY this JSON, no markdown:
{"categoryId": "<best category id>", "rawScoreVector": {"<category id>": <score 0.0-10.0>, ...}}

Include every category id in rawScoreVector. Scores are relative strengths, they need not sum to anything.`,
		details, catalog.String())
}

// parseScores extracts the category and score vector from the model output.
func (c *LLMClient) parseScores(content string) (Response, error) {
	content = cleanMarkdownWrapper(content)

	var parsed struct {
		CategoryID string             `json:"categoryId"`
		RawScores  map[string]float64 `json:"rawScoreVector"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Response{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if parsed.CategoryID == "" {
		return Response{}, fmt.Errorf("no category found in response")
	}

	return Response{
		CategoryID: parsed.CategoryID,
		RawScores:  parsed.RawScores,
	}, nil
}

// Close stops background goroutines and releases connections.
func (c *LLMClient) Close() error {
	c.cache.Close()
	c.limiter.Close()
	c.httpClient.CloseIdleConnections()
	return nil
}

// messagesResponse is the subset of the messages API response we consume.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// cleanMarkdownWrapper strips a ```json fence if the model added one despite
// instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
