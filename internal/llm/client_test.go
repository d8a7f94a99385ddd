package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

func openAIServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Messages, 1)

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestOpenAIClient_JudgeEquivalence(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantEquivalent bool
		wantBand       string
	}{
		{"json verdict", `{"verdict":"equivalent","confidence":"High"}`, true, "high"},
		{"fenced verdict", "```json\n{\"verdict\":\"not_equivalent\",\"confidence\":\"medium\"}\n```", false, "medium"},
		{"bare text", "equivalent", true, "equivalent"},
		{"bare negative", "not equivalent", false, "not equivalent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := openAIServer(t, tt.content, http.StatusOK)
			defer srv.Close()

			c := NewOpenAIClient("test-key").WithBaseURL(srv.URL)
			got, err := c.JudgeEquivalence(context.Background(), "I value honesty", "Honesty matters to me")
			require.NoError(t, err)
			assert.Equal(t, tt.wantEquivalent, got.Equivalent)
			assert.Equal(t, tt.wantBand, got.Band)
		})
	}
}

func TestOpenAIClient_StatusClassification(t *testing.T) {
	srv := openAIServer(t, "", http.StatusServiceUnavailable)
	defer srv.Close()

	c := NewOpenAIClient("test-key").WithBaseURL(srv.URL)
	_, err := c.JudgeEquivalence(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	srv2 := openAIServer(t, "", http.StatusUnauthorized)
	defer srv2.Close()

	c = NewOpenAIClient("test-key").WithBaseURL(srv2.URL)
	_, err = c.DescribeConflict(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestOpenAIClient_DescribeConflict(t *testing.T) {
	srv := openAIServer(t, `{"conflict":true,"description":"  candor versus kindness "}`, http.StatusOK)
	defer srv.Close()

	c := NewCerebrasClient("test-key").WithBaseURL(srv.URL)
	got, err := c.DescribeConflict(context.Background(), "Always be blunt", "Always be gentle")
	require.NoError(t, err)
	assert.True(t, got.Conflict)
	assert.Equal(t, "candor versus kindness", got.Description)
}

func TestOpenAIClient_DescribeConflict_Malformed(t *testing.T) {
	srv := openAIServer(t, "I think they conflict.", http.StatusOK)
	defer srv.Close()

	c := NewOpenAIClient("test-key").WithBaseURL(srv.URL)
	_, err := c.DescribeConflict(context.Background(), "a", "b")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestOpenAIClient_ClassifySignal(t *testing.T) {
	srv := openAIServer(t, `{"stance":"question","importance":"critical","source_kind":"user_elicited","dimension":" honesty-framework "}`, http.StatusOK)
	defer srv.Close()

	c := NewOpenAIClient("test-key").WithBaseURL(srv.URL)
	got, err := c.ClassifySignal(context.Background(), "Should I always tell the truth?")
	require.NoError(t, err)
	assert.Equal(t, domain.StanceQuestion, got.Stance)
	assert.Empty(t, got.Importance, "unknown importance should be blanked")
	assert.Equal(t, domain.SourceUserElicited, got.SourceKind)
	assert.Equal(t, "honesty-framework", got.Dimension)
}

func TestAnthropicClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": ` {"conflict":false,"description":"ignored"} `}},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key")
	c.url = srv.URL
	got, err := c.DescribeConflict(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.False(t, got.Conflict)
	assert.Empty(t, got.Description)
}

func TestGeminiClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.Contains(string(body), "I value honesty"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": `{"verdict":"equivalent","confidence":"low"}`}}}},
			},
		})
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key")
	c.url = srv.URL
	got, err := c.JudgeEquivalence(context.Background(), "I value honesty", "Honesty first")
	require.NoError(t, err)
	assert.True(t, got.Equivalent)
	assert.Equal(t, "low", got.Band)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		apiKey   string
		wantErr  bool
	}{
		{ProviderOpenAI, "k", false},
		{ProviderAnthropic, "k", false},
		{ProviderGemini, "k", false},
		{ProviderCerebras, "k", false},
		{ProviderMock, "", false},
		{ProviderOpenAI, "", true},
		{"llama-local", "k", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := NewClient(tt.provider, tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}
