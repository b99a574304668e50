// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package llm

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"sqlpilot/cli/internal/errors"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicConfig configures the Messages API client.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// AnthropicClient calls the Anthropic Messages API through the official SDK.
// SDK retries are disabled so throttling surfaces to the Invoker.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: cfg.Model}
}

// Complete implements Completer. System messages become the system prompt.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var system []anthropic.TextBlockParam
	var msgs []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(msgs) == 0 {
		return "", errors.New(errors.ProviderBadRequest, "no messages to send")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    msgs,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropic(err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New(errors.ProviderFailed, "anthropic returned no text content")
	}
	return b.String(), nil
}

// classifyAnthropic maps SDK errors onto provider error kinds.
func classifyAnthropic(err error) error {
	var apiErr *anthropic.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return errors.Wrap(errors.ProviderRateLimited, "anthropic rate limited the request", err)
		case 400:
			return errors.Wrap(errors.ProviderBadRequest, "anthropic rejected the request", err)
		default:
			return errors.Wrap(errors.ProviderFailed, "anthropic request failed", err)
		}
	}
	return errors.Wrap(errors.ProviderFailed, "anthropic request failed", err)
}

var _ Completer = (*AnthropicClient)(nil)
