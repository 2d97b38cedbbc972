package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	HTTPAddr string

	// Storage
	DatabaseURL      string
	DatabaseMaxConns int
	SQLitePath       string
	EncryptionKey    string

	// Optional infrastructure
	RedisURL    string
	RabbitMQURL string

	// API credentials
	JWTSecret string
	JWTTTL    time.Duration

	// Google OAuth + Calendar
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	GoogleAuthURL         string
	GoogleTokenURL        string
	GoogleCalendarBaseURL string

	// Suggestion engine
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	SuggestionCacheTTL time.Duration

	UpstreamTimeout    time.Duration
	CORSAllowedOrigins []string
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", "0.0.0.0:8080"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabaseMaxConns: getIntEnv("DATABASE_MAX_CONNS", 10),
		SQLitePath:       getEnv("SQLITE_PATH", ""),
		EncryptionKey:    getEnv("TEMPO_ENCRYPTION_KEY", ""),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getDurationEnv("JWT_TTL", 24*time.Hour),

		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", ""),
		GoogleAuthURL:         getEnv("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/auth"),
		GoogleTokenURL:        getEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		GoogleCalendarBaseURL: getEnv("GOOGLE_CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3/"),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		SuggestionCacheTTL: getDurationEnv("SUGGESTION_CACHE_TTL", 10*time.Minute),

		UpstreamTimeout:    getDurationEnv("UPSTREAM_TIMEOUT", 15*time.Second),
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required in production")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "tempo-dev-secret"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LocalMode reports whether storage falls back to SQLite.
func (c *Config) LocalMode() bool {
	return c.DatabaseURL == ""
}

// CalendarConfigured reports whether the Google client credentials are set.
func (c *Config) CalendarConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
