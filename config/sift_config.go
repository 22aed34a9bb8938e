package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generatePollerID creates a unique poller ID using hostname and PID
func generatePollerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "sift"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// Gmail OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	TokenFile          string

	// Inbox processing
	InboxQuery     string
	MaxMessages    int
	FetchWorkers   int
	MarkReadAfter  bool
	PollerID       string
	PollInterval   time.Duration
	PollerEnabled  bool
	ProcessedIDTTL time.Duration

	// LLM
	OpenAIAPIKey   string
	LLMBaseURL     string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Gmail OAuth
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/oauth/callback"),
		TokenFile:          getEnv("GOOGLE_TOKEN_FILE", "credentials/token.json"),

		// Inbox processing
		InboxQuery:     getEnv("INBOX_QUERY", "is:unread in:inbox"),
		MaxMessages:    getEnvInt("MAX_MESSAGES", 10),
		FetchWorkers:   getEnvInt("FETCH_WORKERS", 5),
		MarkReadAfter:  getEnvBool("MARK_READ_AFTER", true),
		PollerID:       getEnv("POLLER_ID", generatePollerID()),
		PollInterval:   time.Duration(getEnvInt("POLL_INTERVAL_MIN", 15)) * time.Minute,
		PollerEnabled:  getEnvBool("POLLER_ENABLED", true),
		ProcessedIDTTL: time.Duration(getEnvInt("PROCESSED_ID_TTL_HOUR", 72)) * time.Hour,

		// LLM
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 50),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 30),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}, nil
}

// UseLLM reports whether the model-backed classification path is configured.
// Without an API key the router falls back to keyword rules.
func (c *Config) UseLLM() bool {
	return c.OpenAIAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
