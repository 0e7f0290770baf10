// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the daemon needs to start.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DatabaseURL selects the Postgres store. Empty runs on the in-memory
	// store, which loses state on restart.
	DatabaseURL string

	// SecretKey signs API tokens.
	SecretKey string

	// IPHmacSecret keys the HMAC applied to client IPs before they touch
	// storage. Empty disables the per-IP vote limit.
	IPHmacSecret string

	// Advisor settings. An empty API key disables the advisor.
	AdvisorAPIKey  string
	AdvisorBaseURL string
	AdvisorModel   string

	// AllowedOrigins for CORS, comma separated in the environment.
	AllowedOrigins []string

	LogLevel string
}

// Load reads the environment, consulting .env first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "5000"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SecretKey:      os.Getenv("SECRET_KEY"),
		IPHmacSecret:   os.Getenv("IP_HMAC_SECRET"),
		AdvisorAPIKey:  os.Getenv("ADVISOR_API_KEY"),
		AdvisorBaseURL: getEnv("ADVISOR_BASE_URL", "https://api.openai.com"),
		AdvisorModel:   getEnv("ADVISOR_MODEL", "gpt-4o-mini"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
