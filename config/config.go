package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"leaseguard-backend/service"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the complete server configuration.
// Values come from defaults, an optional config.yaml and environment variables, in increasing priority.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string `mapstructure:"port"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// GeminiConfig contains remote analysis configuration
type GeminiConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Endpoints       []string      `mapstructure:"endpoints"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	Temperature     float64       `mapstructure:"temperature"`
	TopK            int           `mapstructure:"top_k"`
	TopP            float64       `mapstructure:"top_p"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	VerifyModels    bool          `mapstructure:"verify_models"`
}

// AnalysisConfig contains orchestration limits
type AnalysisConfig struct {
	MaxChars int           `mapstructure:"max_chars"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string][]string{
	"server.port":              {"PORT", "SERVER_PORT"},
	"server.max_upload_bytes":  {"MAX_UPLOAD_BYTES"},
	"gemini.api_key":           {"GEMINI_API_KEY"},
	"gemini.endpoints":         {"GEMINI_ENDPOINTS"},
	"gemini.request_timeout":   {"GEMINI_REQUEST_TIMEOUT"},
	"gemini.temperature":       {"GEMINI_TEMPERATURE"},
	"gemini.top_k":             {"GEMINI_TOP_K"},
	"gemini.top_p":             {"GEMINI_TOP_P"},
	"gemini.max_output_tokens": {"GEMINI_MAX_OUTPUT_TOKENS"},
	"gemini.verify_models":     {"GEMINI_VERIFY_MODELS"},
	"analysis.max_chars":       {"ANALYSIS_MAX_CHARS"},
	"analysis.timeout":         {"ANALYSIS_TIMEOUT"},
	"log.level":                {"LOG_LEVEL"},
	"log.development":          {"LOG_DEVELOPMENT"},
}

// Load reads .env files, then the optional config file, then the environment
func Load() (*Config, error) {
	// Try current directory first, then project root (relative to cmd/server/)
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("No .env file found, using environment variables")
		}
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../..")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Gemini.Endpoints = compact(cfg.Gemini.Endpoints)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.endpoints", []string{})
	v.SetDefault("gemini.request_timeout", "30s")
	v.SetDefault("gemini.temperature", service.DefaultGenerationConfig.Temperature)
	v.SetDefault("gemini.top_k", service.DefaultGenerationConfig.TopK)
	v.SetDefault("gemini.top_p", service.DefaultGenerationConfig.TopP)
	v.SetDefault("gemini.max_output_tokens", service.DefaultGenerationConfig.MaxOutputTokens)
	v.SetDefault("gemini.verify_models", false)

	v.SetDefault("analysis.max_chars", service.DefaultMaxContractChars)
	v.SetDefault("analysis.timeout", service.DefaultAnalysisTimeout.String())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate checks ranges; the API key is checked by the analysis client
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Gemini.RequestTimeout <= 0 {
		return fmt.Errorf("gemini request timeout must be positive, got %s", c.Gemini.RequestTimeout)
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini temperature must be within [0, 2], got %v", c.Gemini.Temperature)
	}
	if c.Gemini.TopK < 1 {
		return fmt.Errorf("gemini top_k must be at least 1, got %d", c.Gemini.TopK)
	}
	if c.Gemini.TopP <= 0 || c.Gemini.TopP > 1 {
		return fmt.Errorf("gemini top_p must be within (0, 1], got %v", c.Gemini.TopP)
	}
	if c.Gemini.MaxOutputTokens <= 0 {
		return fmt.Errorf("gemini max output tokens must be positive, got %d", c.Gemini.MaxOutputTokens)
	}
	if _, err := c.EndpointVariants(); err != nil {
		return err
	}
	if c.Analysis.MaxChars <= 0 {
		return fmt.Errorf("analysis max chars must be positive, got %d", c.Analysis.MaxChars)
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis timeout must be positive, got %s", c.Analysis.Timeout)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// EndpointVariants converts the configured endpoints. Entries are full generateContent
// URLs or "version/model" shorthands; nil means the built-in list.
func (c *Config) EndpointVariants() ([]service.EndpointVariant, error) {
	if len(c.Gemini.Endpoints) == 0 {
		return nil, nil
	}

	variants := make([]service.EndpointVariant, 0, len(c.Gemini.Endpoints))
	for _, entry := range c.Gemini.Endpoints {
		if strings.Contains(entry, "://") {
			variant, err := service.ParseEndpointVariant(entry)
			if err != nil {
				return nil, err
			}
			variants = append(variants, variant)
			continue
		}

		version, model, ok := strings.Cut(entry, "/")
		if !ok || version == "" || model == "" {
			return nil, fmt.Errorf("invalid endpoint %q: expected a URL or version/model", entry)
		}
		variants = append(variants, service.NewEndpointVariant(version, model))
	}
	return variants, nil
}

// ClientConfig builds the analysis client configuration
func (c *Config) ClientConfig() (service.ClientConfig, error) {
	endpoints, err := c.EndpointVariants()
	if err != nil {
		return service.ClientConfig{}, err
	}
	return service.ClientConfig{
		APIKey:    c.Gemini.APIKey,
		Endpoints: endpoints,
		Generation: service.GenerationConfig{
			Temperature:     c.Gemini.Temperature,
			TopK:            c.Gemini.TopK,
			TopP:            c.Gemini.TopP,
			MaxOutputTokens: c.Gemini.MaxOutputTokens,
		},
		RequestTimeout: c.Gemini.RequestTimeout,
	}, nil
}

// NewLogger builds the zap logger described by the log configuration
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if c.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
