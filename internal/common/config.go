package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN string
}

// ServerConfig holds HTTP server-related configuration
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
	RateLimitEvery time.Duration
	RateLimitBurst int
}

// LLMConfig holds remote model configuration
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	TextModel      string
	VisionModel    string
	Referer        string
	Title          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// AnalysisConfig holds orchestrator tuning knobs
type AnalysisConfig struct {
	Timeout       time.Duration // covers both model calls and all retries
	StaleAfter    time.Duration // Processing records older than this may be re-claimed
	MaxConcurrent int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN: getEnv("DB_URL", "./docintel.db"),
		},
		Server: ServerConfig{
			Addr:           getEnv("ADDR", ":8080"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 25<<20),
			RateLimitEvery: getEnvAsDuration("RATE_LIMIT_EVERY", 500*time.Millisecond),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			TextModel:      getEnv("TEXT_MODEL", "openai/gpt-4o-mini"),
			VisionModel:    getEnv("VISION_MODEL", "openai/gpt-4o"),
			Referer:        getEnv("APP_REFERER", "https://github.com/docintel/docintel"),
			Title:          getEnv("APP_TITLE", "docintel"),
			ConnectTimeout: getEnvAsDuration("LLM_CONNECT_TIMEOUT", 10*time.Second),
			ReadTimeout:    getEnvAsDuration("LLM_READ_TIMEOUT", 90*time.Second),
		},
		Analysis: AnalysisConfig{
			Timeout:       getEnvAsDuration("ANALYZE_TIMEOUT", 3*time.Minute),
			StaleAfter:    getEnvAsDuration("PROCESSING_STALE_AFTER", 10*time.Minute),
			MaxConcurrent: getEnvAsInt64("MAX_CONCURRENT_ANALYSES", 4),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration. A missing credential is a
// fatal configuration error at startup, never a per-request failure.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewConfigError("OPENROUTER_API_KEY is required")
	}
	if c.Database.DSN == "" {
		return NewConfigError("DB_URL is required")
	}
	if c.Server.Addr == "" {
		return NewConfigError("ADDR is required")
	}
	return nil
}
