package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/mediagen")
	t.Setenv("PROVIDER_API_KEY", "test-key")
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROVIDER_API_KEY", "test-key")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadConfigRequiresProviderAPIKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/mediagen")
	t.Setenv("PROVIDER_API_KEY", "   ")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for blank PROVIDER_API_KEY")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ProviderBaseURL != "https://api.kie.ai" {
		t.Fatalf("base url = %q", cfg.ProviderBaseURL)
	}
	if cfg.ProviderMaxRetries != 3 || cfg.ProviderTimeout != 30*time.Second {
		t.Fatalf("provider retry/timeout = %d/%s", cfg.ProviderMaxRetries, cfg.ProviderTimeout)
	}
	if cfg.PollInitialDelay != 5*time.Second || cfg.PollInterval != 10*time.Second {
		t.Fatalf("poll cadence = %s/%s", cfg.PollInitialDelay, cfg.PollInterval)
	}
	if cfg.PollBudget != 10*time.Minute || cfg.PollMaxAttempts != 60 {
		t.Fatalf("poll budget = %s/%d", cfg.PollBudget, cfg.PollMaxAttempts)
	}
	if cfg.DefaultLocale != "en" {
		t.Fatalf("default locale = %q", cfg.DefaultLocale)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROVIDER_BASE_URL", "https://provider.test")
	t.Setenv("POLL_INTERVAL_SECONDS", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ProviderBaseURL != "https://provider.test" {
		t.Fatalf("base url = %q", cfg.ProviderBaseURL)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %s", cfg.PollInterval)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
}
