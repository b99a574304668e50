// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package llm talks to chat-completion providers. Clients translate provider
// failures into typed errors (see internal/errors) and the Invoker adds
// rate-limit backoff on top of any client.
package llm

import (
	"context"
	"fmt"
	"strings"

	"sqlpilot/cli/internal/errors"
)

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completer returns the text of the first completion choice.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// UserPrompt builds a request holding a single user message.
func UserPrompt(model, prompt string, temperature float64, maxTokens int) Request {
	return Request{
		Model:       model,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// IsRateLimited reports whether err signals provider throttling, either as a
// typed ProviderRateLimited error or through the provider's message text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errors.ProviderRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}

// statusError maps an HTTP status from a provider to a typed error.
func statusError(provider string, status int, detail string) error {
	msg := fmt.Sprintf("%s returned HTTP %d", provider, status)
	if detail != "" {
		msg += ": " + detail
	}
	switch {
	case status == 429:
		return errors.New(errors.ProviderRateLimited, msg)
	case status == 400:
		return errors.New(errors.ProviderBadRequest, msg)
	default:
		return errors.New(errors.ProviderFailed, msg)
	}
}
