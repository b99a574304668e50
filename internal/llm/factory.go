// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package llm

import (
	"fmt"

	"sqlpilot/cli/internal/config"
)

// NewCompleter builds the provider client selected by cfg.
func NewCompleter(cfg config.LLMConfig, apiKey string) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderGroq, "":
		return NewOpenAIClient(OpenAIConfig{
			Name:    config.ProviderGroq,
			APIKey:  apiKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case config.ProviderOpenAI:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOpenAIBaseURL
		}
		return NewOpenAIClient(OpenAIConfig{
			Name:    config.ProviderOpenAI,
			APIKey:  apiKey,
			BaseURL: baseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  apiKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// Endpoint returns the base URL requests for cfg are sent to.
func Endpoint(cfg config.LLMConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return DefaultOpenAIBaseURL
	case config.ProviderAnthropic:
		return "https://api.anthropic.com"
	default:
		return DefaultGroqBaseURL
	}
}

// APIKeyEnv names the provider-specific environment variable for the key.
func APIKeyEnv(provider string) string {
	switch provider {
	case config.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case config.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}
