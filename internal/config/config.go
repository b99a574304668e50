// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to the OS keychain or env.
//
// Precedence (highest to lowest): flags > SQLPILOT_* env vars > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"sqlpilot/cli/internal/xdg"
)

// EnvPrefix is the prefix for environment overrides, e.g. SQLPILOT_MAX_RETRY.
const EnvPrefix = "SQLPILOT_"

// Supported LLM providers.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel    string        `koanf:"log_level"`
	LogFormat   string        `koanf:"log_format"`
	Concurrency int           `koanf:"concurrency"`
	MaxRetry    int           `koanf:"max_retry"`
	Dialect     string        `koanf:"dialect"`
	AllowWrites bool          `koanf:"allow_writes"`
	SchemaFile  string        `koanf:"schema_file"`
	LLM         LLMConfig     `koanf:"llm"`
	Backoff     BackoffConfig `koanf:"backoff"`
}

// LLMConfig selects the provider and the completion parameters every agent uses.
type LLMConfig struct {
	Provider    string        `koanf:"provider"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	Timeout     time.Duration `koanf:"timeout"`
}

// BackoffConfig tunes the rate-limit backoff of the invoker.
type BackoffConfig struct {
	// Unit is the length of one backoff step; delays are 1, 2, 4, ... units.
	Unit time.Duration `koanf:"unit"`
	// MaxDelay is the delay, in units, beyond which the invoker gives up.
	MaxDelay int `koanf:"max_delay"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:    "info",
		LogFormat:   "console",
		Concurrency: 4,
		MaxRetry:    3,
		LLM: LLMConfig{
			Provider:    ProviderGroq,
			Temperature: 0.1,
			MaxTokens:   256,
			Timeout:     60 * time.Second,
		},
		Backoff: BackoffConfig{
			Unit:     time.Second,
			MaxDelay: 60,
		},
	}
}

// DefaultModel returns the model used when llm.model is empty.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	default:
		return "llama3-8b-8192"
	}
}

// flagKeys maps CLI flag names to config keys where kebab->snake is not enough.
var flagKeys = map[string]string{
	"provider":    "llm.provider",
	"model":       "llm.model",
	"temperature": "llm.temperature",
	"max-tokens":  "llm.max_tokens",
}

// sections are the nested config blocks reachable from env vars,
// e.g. SQLPILOT_LLM_MODEL -> llm.model.
var sections = []string{"llm", "backoff"}

// Load reads configuration from defaults, the config file, env vars and flags.
// An empty cfgFile means the XDG default path; a missing default file is not an error.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults().toMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := cfgFile
	if path == "" {
		p, err := xdg.ConfigFile()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if cfgFile != "" || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns SQLPILOT_LLM_MODEL into llm.model. Secret variables are
// skipped; they are resolved separately and never enter the config tree.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	switch key {
	case "dsn", "llm_api_key":
		return ""
	}
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxRetry < 0 {
		return fmt.Errorf("max_retry must not be negative, got %d", c.MaxRetry)
	}
	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown llm.provider %q (want groq, openai or anthropic)", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.Backoff.Unit <= 0 {
		return fmt.Errorf("backoff.unit must be positive, got %s", c.Backoff.Unit)
	}
	if c.Backoff.MaxDelay < 1 {
		return fmt.Errorf("backoff.max_delay must be positive, got %d", c.Backoff.MaxDelay)
	}
	return nil
}

// Save writes configuration as YAML with 0600 permissions.
func Save(path string, c Config) error {
	b, err := c.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// YAML renders the configuration in the config file format.
func (c Config) YAML() ([]byte, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(c.toMap(), "."), nil); err != nil {
		return nil, err
	}
	return k.Marshal(yaml.Parser())
}

func (c Config) toMap() map[string]interface{} {
	return map[string]interface{}{
		"log_level":         c.LogLevel,
		"log_format":        c.LogFormat,
		"concurrency":       c.Concurrency,
		"max_retry":         c.MaxRetry,
		"dialect":           c.Dialect,
		"allow_writes":      c.AllowWrites,
		"schema_file":       c.SchemaFile,
		"llm.provider":      c.LLM.Provider,
		"llm.model":         c.LLM.Model,
		"llm.base_url":      c.LLM.BaseURL,
		"llm.temperature":   c.LLM.Temperature,
		"llm.max_tokens":    c.LLM.MaxTokens,
		"llm.timeout":       c.LLM.Timeout.String(),
		"backoff.unit":      c.Backoff.Unit.String(),
		"backoff.max_delay": c.Backoff.MaxDelay,
	}
}
