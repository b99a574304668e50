// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

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

	"sqlpilot/cli/internal/errors"
)

// Groq serves an OpenAI-compatible API; it is the default provider.
const (
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGroqModel     = "llama3-8b-8192"
	defaultHTTPTimeout   = 60 * time.Second
)

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	// Name labels the provider in error messages ("groq", "openai").
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client; tests use httptest servers.
	HTTPClient *http.Client
}

// OpenAIClient calls POST {BaseURL}/chat/completions.
type OpenAIClient struct {
	name       string
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIClient creates a client, defaulting to the Groq endpoint and model.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = "groq"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIClient{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		model:      cfg.Model,
		httpClient: hc,
	}
}

// Complete implements Completer.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(errors.ProviderBadRequest, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(errors.ProviderBadRequest, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(errors.ProviderFailed, c.name+" request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", errors.Wrap(errors.ProviderFailed, "failed to read response", err)
	}

	var resp chatResponse
	decodeErr := json.Unmarshal(respBody, &resp)

	if httpResp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(respBody))
		if decodeErr == nil && resp.Error != nil {
			detail = resp.Error.Message
		}
		return "", statusError(c.name, httpResp.StatusCode, detail)
	}
	if decodeErr != nil {
		return "", errors.Wrap(errors.ProviderFailed, "failed to unmarshal response", decodeErr)
	}
	if resp.Error != nil {
		return "", errors.New(errors.ProviderFailed, fmt.Sprintf("%s error: %s (type: %s)", c.name, resp.Error.Message, resp.Error.Type))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ProviderFailed, c.name+" returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Completer = (*OpenAIClient)(nil)
