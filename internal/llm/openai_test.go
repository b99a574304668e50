package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlpilot/cli/internal/config"
	"sqlpilot/cli/internal/errors"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + "```sql\\nSELECT 1\\n```" + `"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1/"})
	out, err := c.Complete(context.Background(), UserPrompt("", "count rows", 0.1, 256))
	require.NoError(t, err)

	assert.Equal(t, "```sql\nSELECT 1\n```", out)
	assert.Equal(t, DefaultGroqModel, got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
}

func TestOpenAIClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   errors.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"tokens"}}`, errors.ProviderRateLimited},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"max_tokens too large","type":"invalid_request_error"}}`, errors.ProviderBadRequest},
		{"server error", http.StatusBadGateway, `upstream unavailable`, errors.ProviderFailed},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, errors.ProviderFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL})
			_, err := c.Complete(context.Background(), UserPrompt("m", "q", 0, 16))
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL}).Complete(context.Background(), UserPrompt("m", "q", 0, 16))
	assert.True(t, errors.Is(err, errors.ProviderFailed))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(errors.New(errors.ProviderRateLimited, "slow down")))
	assert.True(t, IsRateLimited(errors.New(errors.ProviderFailed, "Rate limit exceeded for model")))
	assert.True(t, IsRateLimited(errors.New(errors.ProviderFailed, "status 429")))
	assert.False(t, IsRateLimited(errors.New(errors.ProviderBadRequest, "bad prompt")))
	assert.False(t, IsRateLimited(nil))
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, DefaultGroqBaseURL, Endpoint(config.LLMConfig{Provider: config.ProviderGroq}))
	assert.Equal(t, DefaultOpenAIBaseURL, Endpoint(config.LLMConfig{Provider: config.ProviderOpenAI}))
	assert.Equal(t, "https://api.anthropic.com", Endpoint(config.LLMConfig{Provider: config.ProviderAnthropic}))
	assert.Equal(t, "http://localhost:8080/v1", Endpoint(config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: "http://localhost:8080/v1"}))
}
