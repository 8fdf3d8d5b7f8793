package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr             string
	APIBaseURL       string
	PublicAPIBaseURL string
	Production       bool
	CORSOrigin       string
	RequestTimeout   time.Duration
	// Refresh de-duplication. Empty RedisURL keeps minted pairs in process memory.
	RedisURL        string
	RefreshReuseTTL time.Duration
}

func Load() Config {
	apiBaseURL := getenv("TRACKER_API_URL", "http://localhost:8080/v1")
	return Config{
		Addr:             getenv("WEB_ADDR", ":5173"),
		APIBaseURL:       apiBaseURL,
		PublicAPIBaseURL: getenv("TRACKER_PUBLIC_API_URL", apiBaseURL),
		Production:       strings.EqualFold(getenv("TRACKER_ENV", "development"), "production"),
		CORSOrigin:       getenv("TRACKER_CORS_ORIGIN", "*"),
		RequestTimeout:   time.Duration(getenvInt("TRACKER_API_TIMEOUT_SECONDS", 15)) * time.Second,
		RedisURL:         getenv("REDIS_URL", ""),
		RefreshReuseTTL:  time.Duration(getenvInt("TRACKER_REFRESH_REUSE_SECONDS", 30)) * time.Second,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
