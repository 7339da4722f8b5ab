package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	DatabaseURL     string
	ProviderAPIKey  string
	ProviderBaseURL string

	ProviderMaxRetries int
	ProviderTimeout    time.Duration

	PollInitialDelay time.Duration
	PollInterval     time.Duration
	PollBudget       time.Duration
	PollMaxAttempts  int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
	DefaultLocale    string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The provider credential and the database URL have no
// usable default, so their absence is an error.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ProviderAPIKey:     strings.TrimSpace(os.Getenv("PROVIDER_API_KEY")),
		ProviderBaseURL:    getEnv("PROVIDER_BASE_URL", "https://api.kie.ai"),
		ProviderMaxRetries: getEnvInt("PROVIDER_MAX_RETRIES", 3),
		ProviderTimeout:    time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30)),
		PollInitialDelay:   time.Second * time.Duration(getEnvInt("POLL_INITIAL_DELAY_SECONDS", 5)),
		PollInterval:       time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)),
		PollBudget:         time.Second * time.Duration(getEnvInt("POLL_BUDGET_SECONDS", 600)),
		PollMaxAttempts:    getEnvInt("POLL_MAX_ATTEMPTS", 60),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ProviderAPIKey == "" {
		return nil, fmt.Errorf("PROVIDER_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
