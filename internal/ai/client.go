// Package ai implements the text-generation backend over an OpenAI-compatible
// chat-completions API. It hosts the prompt templates for the workflow port
// methods and the parsers that turn model output into typed records.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/pm-agent/internal/errors"
	"github.com/p-blackswan/pm-agent/internal/retry"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4"
	defaultMaxTokens = 2000
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the chat-completions API.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  HTTPClient
	retryPolicy retry.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// Option configures the client.
type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.retryPolicy = p }
}

// NewClient constructs a chat-completions client.
func NewClient(apiKey string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: 0.7,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		retryPolicy: retry.DefaultPolicy(),
		logger:      logger.With().Str("component", "ai").Logger(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// complete sends one system+user exchange and returns the model's text.
// Transient upstream failures (429/5xx) are retried here; callers never retry.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var text string
	err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		var err error
		text, err = c.completeOnce(ctx, systemPrompt, userPrompt)
		return err
	})
	return text, err
}

func (c *Client) completeOnce(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &perrors.APIError{
			Service:    "ai",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if cr.Error != nil {
		return "", perrors.NewAPIError("ai", resp.StatusCode, cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", perrors.NewAPIError("ai", resp.StatusCode, "empty choices in response")
	}
	return cr.Choices[0].Message.Content, nil
}

// Ping performs a minimal completion to verify credentials and reachability.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.complete(ctx, "You are a health check.", "Reply with OK.")
	return err
}

// extractJSON returns the first-to-last brace span of a model reply, which
// tolerates prose wrapped around the JSON payload.
func extractJSON(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// extractJSONArray is the bracket form of extractJSON.
func extractJSONArray(content string) (string, bool) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}
