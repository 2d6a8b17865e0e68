// Package llm talks to an OpenAI-compatible chat-completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sitesmith-backend/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "z-ai/glm-4.5-air:free"

	// maxResponseSize caps how much of a completion body is read.
	maxResponseSize = 10 * 1024 * 1024
)

var (
	ErrNotConfigured = errors.New("completion backend API key not configured")
	ErrNoChoices     = errors.New("completion backend returned no choices")
)

// Completer returns the text of the first choice for a message sequence.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

type Options struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
}

// OpenRouterClient is a Completer backed by an OpenAI-compatible HTTP API.
// It never retries; every failure surfaces as a single error.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

func NewOpenRouterClient(opts Options, log *zap.Logger) *OpenRouterClient {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = utils.NewHTTPClient(opts.Timeout, log)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &OpenRouterClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      opts.Model,
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		log:        log,
	}
}

func (c *OpenRouterClient) Model() string {
	return c.model
}

func (c *OpenRouterClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for completion slot: %w", err)
		}
	}

	body, err := json.Marshal(ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody apiErrorResponse
		if json.Unmarshal(respBody, &errBody) == nil {
			apiErr.Message = errBody.Error.Message
		}
		return "", apiErr
	}

	var completion ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}

	c.log.Debug("completion finished",
		zap.String("model", c.model),
		zap.Int("total_tokens", completion.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return completion.Choices[0].Message.Content, nil
}
