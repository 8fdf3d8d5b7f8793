package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"WEB_ADDR", "TRACKER_API_URL", "TRACKER_PUBLIC_API_URL", "TRACKER_ENV", "REDIS_URL", "TRACKER_API_TIMEOUT_SECONDS", "TRACKER_REFRESH_REUSE_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":5173" {
		t.Fatalf("expected default addr :5173, got %q", cfg.Addr)
	}
	if cfg.PublicAPIBaseURL != cfg.APIBaseURL {
		t.Fatalf("expected public API URL to fall back to %q, got %q", cfg.APIBaseURL, cfg.PublicAPIBaseURL)
	}
	if cfg.Production {
		t.Fatal("expected development by default")
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.RefreshReuseTTL != 30*time.Second {
		t.Fatalf("expected 30s refresh reuse, got %s", cfg.RefreshReuseTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRACKER_API_URL", "http://api:9000/v1")
	t.Setenv("TRACKER_PUBLIC_API_URL", "https://tracker.example.com/v1")
	t.Setenv("TRACKER_ENV", "Production")
	t.Setenv("TRACKER_API_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg := Load()
	if cfg.APIBaseURL != "http://api:9000/v1" {
		t.Fatalf("unexpected API URL %q", cfg.APIBaseURL)
	}
	if cfg.PublicAPIBaseURL != "https://tracker.example.com/v1" {
		t.Fatalf("unexpected public API URL %q", cfg.PublicAPIBaseURL)
	}
	if !cfg.Production {
		t.Fatal("expected production flag from TRACKER_ENV")
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("expected invalid timeout to fall back to 15s, got %s", cfg.RequestTimeout)
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Fatalf("unexpected redis URL %q", cfg.RedisURL)
	}
}
