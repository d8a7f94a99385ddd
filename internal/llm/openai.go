package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"

	cerebrasAPIURL = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasModel  = "llama-3.3-70b"

	defaultRequestTimeout = 30 * time.Second
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	name       string
	url        string
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return newOpenAICompatible("openai", openAIChatURL, chatModel, apiKey)
}

// NewCerebrasClient returns a client for Cerebras, which speaks the OpenAI wire format.
func NewCerebrasClient(apiKey string) *OpenAIClient {
	return newOpenAICompatible("cerebras", cerebrasAPIURL, cerebrasModel, apiKey)
}

func newOpenAICompatible(name, url, model, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		name:       name,
		url:        url,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// WithBaseURL points the client at a different endpoint. Used for self-hosted gateways.
func (c *OpenAIClient) WithBaseURL(url string) *OpenAIClient {
	c.url = url
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", NewFatalError(fmt.Errorf("marshal %s request: %w", c.name, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create %s request: %w", c.name, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError(c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read %s response: %w", c.name, err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(c.name, resp.StatusCode, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", NewFatalError(fmt.Errorf("unmarshal %s response: %w", c.name, err))
	}

	if result.Error != nil {
		return "", NewFatalError(fmt.Errorf("%s API error: %s", c.name, result.Error.Message))
	}

	if len(result.Choices) == 0 {
		return "", NewTransientError(fmt.Errorf("%s API returned no choices", c.name))
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) JudgeEquivalence(ctx context.Context, textA, textB string) (*domain.EquivalenceJudgment, error) {
	return judgeEquivalence(ctx, c, textA, textB)
}

func (c *OpenAIClient) DescribeConflict(ctx context.Context, stmtA, stmtB string) (*domain.ConflictResult, error) {
	return describeConflict(ctx, c, stmtA, stmtB)
}

func (c *OpenAIClient) ClassifySignal(ctx context.Context, text string) (*domain.SignalClassification, error) {
	return classifySignal(ctx, c, text)
}
