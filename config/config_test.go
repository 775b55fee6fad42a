package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"leaseguard-backend/service"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// clearEnv blanks every bound variable; viper ignores empty values
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
	t.Setenv("CONFIG_FILE", "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Empty(t, cfg.Gemini.APIKey)
	assert.Empty(t, cfg.Gemini.Endpoints)
	assert.Equal(t, 30*time.Second, cfg.Gemini.RequestTimeout)
	assert.Equal(t, 0.1, cfg.Gemini.Temperature)
	assert.Equal(t, 1, cfg.Gemini.TopK)
	assert.Equal(t, 1.0, cfg.Gemini.TopP)
	assert.Equal(t, 8192, cfg.Gemini.MaxOutputTokens)
	assert.Equal(t, 50000, cfg.Analysis.MaxChars)
	assert.Equal(t, 45*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)

	endpoints, err := cfg.EndpointVariants()
	require.NoError(t, err)
	assert.Nil(t, endpoints)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "abc123")
	t.Setenv("GEMINI_ENDPOINTS", "v1beta/gemini-2.0-flash, https://example.com/v1/models/custom:generateContent")
	t.Setenv("ANALYSIS_TIMEOUT", "10s")
	t.Setenv("ANALYSIS_MAX_CHARS", "2000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GEMINI_VERIFY_MODELS", "true")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "abc123", cfg.Gemini.APIKey)
	assert.Equal(t, 10*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 2000, cfg.Analysis.MaxChars)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Gemini.VerifyModels)

	clientCfg, err := cfg.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "abc123", clientCfg.APIKey)
	require.Len(t, clientCfg.Endpoints, 2)
	assert.Equal(t, service.NewEndpointVariant("v1beta", "gemini-2.0-flash"), clientCfg.Endpoints[0])
	assert.Equal(t, "v1/custom", clientCfg.Endpoints[1].Name)
	assert.Equal(t, service.DefaultGenerationConfig, clientCfg.Generation)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "leaseguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
gemini:
  endpoints:
    - v1/gemini-1.5-flash
  temperature: 0.3
analysis:
  timeout: 20s
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, []string{"v1/gemini-1.5-flash"}, cfg.Gemini.Endpoints)
	assert.Equal(t, 0.3, cfg.Gemini.Temperature)
	assert.Equal(t, 20*time.Second, cfg.Analysis.Timeout)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := load(viper.New())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", MaxUploadBytes: 1024},
			Gemini: GeminiConfig{
				RequestTimeout:  time.Second,
				Temperature:     0.1,
				TopK:            1,
				TopP:            1,
				MaxOutputTokens: 100,
			},
			Analysis: AnalysisConfig{MaxChars: 100, Timeout: time.Second},
			Log:      LogConfig{Level: "info"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-numeric port", func(c *Config) { c.Server.Port = "http" }},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }},
		{"zero request timeout", func(c *Config) { c.Gemini.RequestTimeout = 0 }},
		{"temperature too high", func(c *Config) { c.Gemini.Temperature = 3 }},
		{"top_k zero", func(c *Config) { c.Gemini.TopK = 0 }},
		{"top_p zero", func(c *Config) { c.Gemini.TopP = 0 }},
		{"no output tokens", func(c *Config) { c.Gemini.MaxOutputTokens = 0 }},
		{"bad endpoint", func(c *Config) { c.Gemini.Endpoints = []string{"gemini-2.0-flash"} }},
		{"zero max chars", func(c *Config) { c.Analysis.MaxChars = 0 }},
		{"zero analysis timeout", func(c *Config) { c.Analysis.Timeout = 0 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "warn"}.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = LogConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)
}
