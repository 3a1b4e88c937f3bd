// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all gateway configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string

	SupabaseURL        string
	SupabaseServiceKey string

	// JWTSecret verifies Supabase-issued HS256 access tokens.
	JWTSecret string

	LogLevel  string
	LogFormat string

	AllowedOrigins []string

	RateLimitPerSecond int
	RateLimitBurst     int
	// RedisAddr enables the Redis-backed rate limiter when set.
	RedisAddr     string
	RedisPassword string

	EmailProviderURL    string
	EmailProviderAPIKey string
	EmailFromAddress    string
	EmailWebhookSecret  string

	// InviteDispatchInterval is the cron poll interval for scheduled invites.
	InviteDispatchInterval time.Duration
	// ExpirySweepInterval is how often past-deadline scholarships are
	// marked inactive.
	ExpirySweepInterval time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:             getEnv("LISTEN_ADDR", ":8080"),
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey:     os.Getenv("SUPABASE_SERVICE_KEY"),
		JWTSecret:              os.Getenv("SUPABASE_JWT_SECRET"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		AllowedOrigins:         splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RateLimitPerSecond:     getEnvInt("RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:         getEnvInt("RATE_LIMIT_BURST", 40),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		EmailProviderURL:       getEnv("EMAIL_PROVIDER_URL", "https://api.resend.com"),
		EmailProviderAPIKey:    os.Getenv("EMAIL_PROVIDER_API_KEY"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", "no-reply@scholarshipfinder.app"),
		EmailWebhookSecret:     os.Getenv("EMAIL_WEBHOOK_SECRET"),
		InviteDispatchInterval: getEnvDuration("INVITE_DISPATCH_INTERVAL", time.Minute),
		ExpirySweepInterval:    getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Hour),
	}

	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
