package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	GenAIAdapterMode string
	GenAIHTTPURL     string
	GenAIAPIKey      string
	GenAIModel       string

	StreamMinChars      int
	ToolDispatchTimeout time.Duration

	OpenWeatherURL    string
	OpenWeatherAPIKey string

	MailEndpoint  string
	MailAuthToken string

	GeneratorURL    string
	GeneratorAPIKey string

	LiveEndpointURL    string
	LiveEndpointAPIKey string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "aikon"),
		AllowAnyOrigin:   false,

		GenAIAdapterMode: envOrDefault("GENAI_ADAPTER_MODE", "auto"),
		GenAIHTTPURL:     envTrimmed("GENAI_HTTP_URL"),
		GenAIAPIKey:      envTrimmed("GENAI_API_KEY"),
		GenAIModel:       envOrDefault("GENAI_MODEL", "gemini-2.0-flash"),

		StreamMinChars:      24,
		ToolDispatchTimeout: 30 * time.Second,

		OpenWeatherURL:    envOrDefault("OPENWEATHER_URL", "https://api.openweathermap.org"),
		OpenWeatherAPIKey: envTrimmed("OPENWEATHER_API_KEY"),

		MailEndpoint:  envTrimmed("MAIL_ENDPOINT"),
		MailAuthToken: envTrimmed("MAIL_AUTH_TOKEN"),

		GeneratorURL:    envTrimmed("GENERATOR_URL"),
		GeneratorAPIKey: envTrimmed("GENERATOR_API_KEY"),

		LiveEndpointURL:    envTrimmed("LIVE_ENDPOINT_URL"),
		LiveEndpointAPIKey: envTrimmed("LIVE_ENDPOINT_API_KEY"),

		DatabaseURL: envTrimmed("DATABASE_URL"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ToolDispatchTimeout, err = durationFromEnv("TOOL_DISPATCH_TIMEOUT", cfg.ToolDispatchTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StreamMinChars, err = intFromEnv("STREAM_MIN_CHARS", cfg.StreamMinChars)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.ToolDispatchTimeout <= 0 {
		return Config{}, fmt.Errorf("TOOL_DISPATCH_TIMEOUT must be positive")
	}
	if cfg.StreamMinChars <= 0 {
		return Config{}, fmt.Errorf("STREAM_MIN_CHARS must be positive")
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

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
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
	v := envTrimmed(key)
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
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
