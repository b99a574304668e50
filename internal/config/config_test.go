package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 3, cfg.MaxRetry)
	assert.False(t, cfg.AllowWrites)
	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "llama3-8b-8192", cfg.LLM.Model)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 256, cfg.LLM.MaxTokens)
	assert.Equal(t, time.Second, cfg.Backoff.Unit)
	assert.Equal(t, 60, cfg.Backoff.MaxDelay)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_retry: 5
concurrency: 2
dialect: PostgreSQL
llm:
  provider: anthropic
  max_tokens: 512
backoff:
  unit: 10ms
`), 0o600))

	t.Setenv("SQLPILOT_CONCURRENCY", "6")
	t.Setenv("SQLPILOT_LLM_TEMPERATURE", "0.3")
	t.Setenv("SQLPILOT_DSN", "postgres://u:p@h/db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-retry", 3, "")
	flags.String("model", "", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--max-retry", "1", "--model", "claude-test"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxRetry, "flag beats file")
	assert.Equal(t, 6, cfg.Concurrency, "env beats file")
	assert.Equal(t, "PostgreSQL", cfg.Dialect)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 10*time.Millisecond, cfg.Backoff.Unit)
	assert.Equal(t, "info", cfg.LogLevel, "unchanged flag does not override")
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("SQLPILOT_LLM_PROVIDER", "mystery")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "llm.provider")
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")

	want := Defaults()
	want.MaxRetry = 7
	want.AllowWrites = true
	want.LLM.Provider = ProviderOpenAI
	want.LLM.Model = "gpt-test"
	require.NoError(t, Save(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative retry", func(c *Config) { c.MaxRetry = -1 }},
		{"zero tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"zero unit", func(c *Config) { c.Backoff.Unit = 0 }},
		{"zero cap", func(c *Config) { c.Backoff.MaxDelay = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := Defaults()
	assert.NoError(t, c.Validate())
}
