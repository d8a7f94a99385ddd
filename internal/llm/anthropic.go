package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicModel       = "claude-3-5-haiku-20241022"
	anthropicVersion     = "2023-06-01"
)

type AnthropicClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		url:        anthropicMessagesURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     anthropicModel,
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", NewFatalError(fmt.Errorf("marshal anthropic request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create anthropic request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError("anthropic", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read anthropic response: %w", err))
	}

	// 529 is Anthropic's "overloaded"; statusError treats every 5xx as transient.
	if resp.StatusCode != http.StatusOK {
		return "", statusError("anthropic", resp.StatusCode, respBody)
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", NewFatalError(fmt.Errorf("unmarshal anthropic response: %w", err))
	}

	if result.Error != nil {
		return "", NewFatalError(fmt.Errorf("anthropic API error: %s", result.Error.Message))
	}

	if len(result.Content) == 0 {
		return "", NewTransientError(fmt.Errorf("anthropic API returned no content"))
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}

func (c *AnthropicClient) JudgeEquivalence(ctx context.Context, textA, textB string) (*domain.EquivalenceJudgment, error) {
	return judgeEquivalence(ctx, c, textA, textB)
}

func (c *AnthropicClient) DescribeConflict(ctx context.Context, stmtA, stmtB string) (*domain.ConflictResult, error) {
	return describeConflict(ctx, c, stmtA, stmtB)
}

func (c *AnthropicClient) ClassifySignal(ctx context.Context, text string) (*domain.SignalClassification, error) {
	return classifySignal(ctx, c, text)
}
