// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"strings"

	"sqlpilot/cli/internal/config"
	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/keychain"
	"sqlpilot/cli/internal/llm"
)

// secret is a credential together with where it was found.
type secret struct {
	Value  string
	Source string
}

// resolveDSN looks up the database DSN: SQLPILOT_DSN, DATABASE_URL, keychain.
func resolveDSN() (secret, error) {
	for _, env := range []string{config.EnvPrefix + "DSN", "DATABASE_URL"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return secret{Value: v, Source: env + " environment variable"}, nil
		}
	}
	km, err := keychain.GetManager()
	if err != nil {
		return secret{}, errors.Wrap(errors.SecretUnavailable, "secure storage is not available; set SQLPILOT_DSN instead", err)
	}
	v, err := km.LoadDBDSN()
	if err != nil {
		return secret{}, errors.New(errors.SecretUnavailable, "no database connection configured; run 'sqlpilot connect' or set SQLPILOT_DSN")
	}
	return secret{Value: v, Source: "OS keychain"}, nil
}

// resolveLLMKey looks up the provider API key: SQLPILOT_LLM_API_KEY, the
// provider's own variable (GROQ_API_KEY, ...), keychain.
func resolveLLMKey(provider string) (secret, error) {
	for _, env := range []string{config.EnvPrefix + "LLM_API_KEY", llm.APIKeyEnv(provider)} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return secret{Value: v, Source: env + " environment variable"}, nil
		}
	}
	km, err := keychain.GetManager()
	if err != nil {
		return secret{}, errors.Wrap(errors.SecretUnavailable, "secure storage is not available; set "+llm.APIKeyEnv(provider)+" instead", err)
	}
	v, err := km.LoadLLMKey()
	if err != nil {
		return secret{}, errors.New(errors.SecretUnavailable, "no LLM API key configured; run 'sqlpilot key set' or set "+llm.APIKeyEnv(provider))
	}
	return secret{Value: v, Source: "OS keychain"}, nil
}
