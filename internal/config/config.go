package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the fitpick API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Images   ImageConfig    `yaml:"images"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// OpenAIConfig holds model provider settings. One client is built from these
// at startup and shared by every component.
type OpenAIConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	LLMModel            string `yaml:"llm_model"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"` // 0 = model default
}

// CatalogConfig holds product catalog settings.
type CatalogConfig struct {
	Path string `yaml:"path"` // JSONL with precomputed embeddings
	TopK int    `yaml:"top_k"`
}

// PipelineConfig holds recommendation pipeline tuning knobs.
type PipelineConfig struct {
	MinRating             float64     `yaml:"min_rating"`
	ValidationConcurrency int         `yaml:"validation_concurrency"`
	ValidationTimeoutSec  int         `yaml:"validation_timeout_sec"`
	Retry                 RetryConfig `yaml:"retry"`
}

// RetryConfig holds the bounded retry policy applied to every upstream call.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffSec    int `yaml:"max_backoff_sec"`
}

// ImageConfig holds thumbnail fetching settings.
type ImageConfig struct {
	FetchTimeoutSec int   `yaml:"fetch_timeout_sec"`
	MaxBytes        int64 `yaml:"max_bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: env-dependent)
}

// Load reads configuration from a YAML file by environment name (local, prod).
// A .env file in the working directory is loaded first so that ${VAR}
// references in the YAML resolve against it.
func Load(env string) (Config, error) {
	// Missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Validation fans out vision calls; responses can take a while.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.LLMModel == "" {
		c.OpenAI.LLMModel = "gpt-4o-mini"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "data/products_with_embeddings.jsonl"
	}
	if c.Catalog.TopK <= 0 {
		c.Catalog.TopK = 3
	}
	if c.Pipeline.MinRating <= 0 {
		c.Pipeline.MinRating = 3.0
	}
	if c.Pipeline.ValidationConcurrency <= 0 {
		c.Pipeline.ValidationConcurrency = 15
	}
	if c.Pipeline.ValidationTimeoutSec <= 0 {
		c.Pipeline.ValidationTimeoutSec = 90
	}
	if c.Pipeline.Retry.MaxAttempts <= 0 {
		c.Pipeline.Retry.MaxAttempts = 5
	}
	if c.Pipeline.Retry.InitialBackoffMS <= 0 {
		c.Pipeline.Retry.InitialBackoffMS = 1000
	}
	if c.Pipeline.Retry.MaxBackoffSec <= 0 {
		c.Pipeline.Retry.MaxBackoffSec = 30
	}
	if c.Images.FetchTimeoutSec <= 0 {
		c.Images.FetchTimeoutSec = 15
	}
	if c.Images.MaxBytes <= 0 {
		c.Images.MaxBytes = 10 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Pipeline.MinRating < 0 || c.Pipeline.MinRating > 5 {
		return fmt.Errorf("pipeline.min_rating must be between 0 and 5, got %g", c.Pipeline.MinRating)
	}
	if c.Catalog.TopK > 100 {
		return fmt.Errorf("catalog.top_k must be at most 100, got %d", c.Catalog.TopK)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
