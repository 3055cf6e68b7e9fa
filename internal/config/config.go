package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"vizora/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	LLM      LLMConfig
	Server   ServerConfig
	Admin    AdminConfig
	Data     DataConfig
	Pipeline PipelineConfig
	Store    StoreConfig
	LogLevel string
}

// LLMConfig holds model provider settings
type LLMConfig struct {
	Provider      string // openai, gemini, ollama
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	PromptsDir    string // optional override for the embedded prompt templates
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	CORSOrigins    []string
	MaxUploadBytes int64
}

// AdminConfig holds the health/pprof listener settings
type AdminConfig struct {
	Port    string
	Enabled bool
}

// DataConfig holds dataset loading settings
type DataConfig struct {
	MaxRows    int
	SampleSeed int64
	InboxDir   string
}

// PipelineConfig holds defaults for the analysis flow
type PipelineConfig struct {
	NumPersonas   int
	NumGoals      int
	Concurrency   int
	SummaryMethod string
}

// StoreConfig selects the upload registry backend
type StoreConfig struct {
	Driver      string // memory, postgres
	DatabaseURL string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		LLM:      *loadLLMConfig(),
		Server:   *loadServerConfig(),
		Admin:    *loadAdminConfig(),
		Data:     *loadDataConfig(),
		Pipeline: *loadPipelineConfig(),
		Store:    *loadStoreConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadLLMConfig() *LLMConfig {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "openai"))

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		switch provider {
		case "openai":
			apiKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	defaultModel := "gpt-4o-mini"
	switch provider {
	case "gemini":
		defaultModel = "gemini-1.5-flash"
	case "ollama":
		defaultModel = "llama3.1"
	}

	return &LLMConfig{
		Provider:      provider,
		APIKey:        apiKey,
		BaseURL:       getEnvOrDefault("LLM_BASE_URL", ""),
		Model:         getEnvOrDefault("LLM_MODEL", defaultModel),
		FallbackModel: getEnvOrDefault("LLM_FALLBACK_MODEL", ""),
		MaxTokens:     getEnvIntOrDefault("MAX_TOKENS", 4000),
		Temperature:   getEnvFloatOrDefault("TEMPERATURE", 0.2),
		Timeout:       getEnvDurationOrDefault("LLM_TIMEOUT", 90*time.Second),
		PromptsDir:    getEnvOrDefault("PROMPTS_DIR", ""),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
		CORSOrigins:    getEnvListOrDefault("CORS_ORIGINS", []string{"*"}),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)) << 20,
	}
}

func loadAdminConfig() *AdminConfig {
	return &AdminConfig{
		Port:    getEnvOrDefault("ADMIN_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", true),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		MaxRows:    getEnvIntOrDefault("DATA_MAX_ROWS", 4500),
		SampleSeed: int64(getEnvIntOrDefault("DATA_SAMPLE_SEED", 42)),
		InboxDir:   getEnvOrDefault("INBOX_DIR", ""),
	}
}

func loadPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		NumPersonas:   getEnvIntOrDefault("PIPELINE_PERSONAS", 3),
		NumGoals:      getEnvIntOrDefault("PIPELINE_GOALS", 5),
		Concurrency:   getEnvIntOrDefault("PIPELINE_CONCURRENCY", 4),
		SummaryMethod: getEnvOrDefault("SUMMARY_METHOD", "llm"),
	}
}

func loadStoreConfig() *StoreConfig {
	return &StoreConfig{
		Driver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", "memory")),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
	}
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			return errors.ConfigInvalid("LLM_API_KEY is required for provider " + c.LLM.Provider)
		}
	case "ollama":
	default:
		return errors.ConfigInvalid("unknown LLM_PROVIDER: " + c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.ConfigInvalid("LLM_MODEL is required")
	}

	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return errors.ConfigInvalid("unknown STORE_DRIVER: " + c.Store.Driver)
	}

	switch c.Pipeline.SummaryMethod {
	case "default", "llm", "columns":
	default:
		return errors.ConfigInvalid("unknown SUMMARY_METHOD: " + c.Pipeline.SummaryMethod)
	}

	if c.Pipeline.Concurrency < 1 {
		return errors.ConfigInvalid("PIPELINE_CONCURRENCY must be at least 1")
	}
	if c.Data.MaxRows < 1 {
		return errors.ConfigInvalid("DATA_MAX_ROWS must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
