package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the translation service.
type Config struct {
	BindAddr         string
	Environment      string
	Debug            bool
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	SessionSecretKey string
	SessionTTL       time.Duration
	SessionRenewal   time.Duration

	AnthropicAPIKey  string
	AssemblyAIAPIKey string
	CartesiaAPIKey   string

	AnthropicBaseURL  string
	AssemblyAIBaseURL string
	CartesiaWSBaseURL string

	TranslationModel string
	TTSModel         string

	RedisURL          string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	StreamInactivityTimeout time.Duration

	DatabaseURL string
}

// Production reports whether the service runs with production hardening
// (strict origin checking, Secure cookies).
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads environment variables and applies safe defaults. The session
// signing secret is mandatory: every token the service issues derives from
// it, so starting without one would silently break all auth.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		Environment:       envOrDefault("APP_ENV", "development"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "parley"),
		SessionSecretKey:  trimmedEnv("SESSION_SECRET_KEY"),
		SessionTTL:        24 * time.Hour,
		SessionRenewal:    time.Hour,
		AnthropicAPIKey:   trimmedEnv("ANTHROPIC_API_KEY"),
		AssemblyAIAPIKey:  trimmedEnv("ASSEMBLYAI_API_KEY"),
		CartesiaAPIKey:    trimmedEnv("CARTESIA_API_KEY"),
		AnthropicBaseURL:  envOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AssemblyAIBaseURL: envOrDefault("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
		CartesiaWSBaseURL: envOrDefault("CARTESIA_WS_BASE_URL", "wss://api.cartesia.ai"),
		TranslationModel:  envOrDefault("TRANSLATION_MODEL", "claude-3-5-sonnet-20240620"),
		TTSModel:          envOrDefault("TTS_MODEL", "sonic-multilingual"),
		RedisURL:          trimmedEnv("REDIS_URL"),
		RateLimitRequests: 10,
		RateLimitWindow:   10 * time.Second,
		DatabaseURL:       trimmedEnv("DATABASE_URL"),

		ShutdownTimeout:         15 * time.Second,
		StreamInactivityTimeout: 50 * time.Second,
	}

	var err error
	cfg.Debug, err = boolFromEnv("DEBUG", false)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StreamInactivityTimeout, err = durationFromEnv("TTS_STREAM_INACTIVITY_TIMEOUT", cfg.StreamInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitRequests, err = intFromEnv("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitWindow, err = durationFromEnv("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionSecretKey == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET_KEY environment variable is not set")
	}
	switch strings.ToLower(cfg.Environment) {
	case "production", "development":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV: %q (expected production|development)", cfg.Environment)
	}
	if cfg.RateLimitRequests <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if cfg.RateLimitWindow < time.Second {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
	}
	if cfg.StreamInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("TTS_STREAM_INACTIVITY_TIMEOUT must be at least 5s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("%s parse error: expected bool", key)
}
