// ABOUTME: Centralized configuration for the infinite-context pipeline
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the pipeline and its servers
type Config struct {
	// Chunking settings
	ChunkWords          int
	MaxConcurrent       int
	DefaultModeMaxChars int

	// Backend settings
	Backend    string
	OpenAIKey  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Whole-request bound; late results from an aborted batch are
	// discarded, this keeps them from hanging around forever
	RequestTimeout time.Duration

	// Server settings
	ListenAddr string

	// Transcript persistence settings
	CharmHost          string
	CharmDBName        string
	TranscriptDebounce time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		ChunkWords:          getEnvInt("CHUNK_WORDS", 500),
		MaxConcurrent:       getEnvInt("MAX_CONCURRENT", 8),
		DefaultModeMaxChars: getEnvInt("DEFAULT_MODE_MAX_CHARS", 500),
		Backend:             getEnv("INFCTX_BACKEND", "openai"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		Model:               getEnv("INFCTX_MODEL", "gpt-4o-mini"),
		Timeout:             getEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
		MaxRetries:          getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:          getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),
		RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 10*time.Minute),
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		CharmHost:           getEnv("CHARM_HOST", "charm.2389.dev"),
		CharmDBName:         getEnv("CHARM_DB", "infinitectx"),
		TranscriptDebounce:  getEnvDuration("TRANSCRIPT_DEBOUNCE", time.Second),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.ChunkWords <= 0 {
		return fmt.Errorf("CHUNK_WORDS must be positive, got %d", c.ChunkWords)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("MAX_CONCURRENT must be >= 0 (0 = unbounded), got %d", c.MaxConcurrent)
	}
	if c.DefaultModeMaxChars <= 0 {
		return fmt.Errorf("DEFAULT_MODE_MAX_CHARS must be positive, got %d", c.DefaultModeMaxChars)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.TranscriptDebounce < 0 {
		return fmt.Errorf("TRANSCRIPT_DEBOUNCE must be >= 0, got %v", c.TranscriptDebounce)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
