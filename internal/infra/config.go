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
	AppEnv        string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	WebhookSecret string
	TokenTTL      time.Duration

	// Origins admitted by CORS; scheme-prefix wildcards allowed.
	AllowedOrigins []string

	// Shared cache/counter store. Empty RedisAddr means the entity cache and
	// the distributed rate limiter run in degraded mode from boot.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeoIPDBPath string

	GoogleClientID string
	GoogleTokenURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	SheetsBaseURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	CacheTTL time.Duration

	RateLimitGeneral RateLimitRule
	RateLimitAuth    RateLimitRule
	RateLimitExtract RateLimitRule
	RateLimitExport  RateLimitRule
}

// RateLimitRule is a fixed-window rate limit: Max requests per Window.
type RateLimitRule struct {
	Max    int
	Window time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		WebhookSecret:  os.Getenv("BILLING_WEBHOOK_SECRET"),
		TokenTTL:       time.Hour * time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "chrome-extension://*,moz-extension://*")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleTokenURL: getEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		SheetsBaseURL: getEnv("SHEETS_BASE_URL", "https://sheets.googleapis.com/v4"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		CacheTTL: time.Second * time.Duration(getEnvInt("CACHE_TTL_SECONDS", 3600)),

		RateLimitGeneral: RateLimitRule{
			Max:    getEnvInt("RATE_LIMIT_GENERAL_MAX", 120),
			Window: time.Second * time.Duration(getEnvInt("RATE_LIMIT_GENERAL_WINDOW_SECONDS", 60)),
		},
		RateLimitAuth: RateLimitRule{
			Max:    getEnvInt("RATE_LIMIT_AUTH_MAX", 20),
			Window: time.Second * time.Duration(getEnvInt("RATE_LIMIT_AUTH_WINDOW_SECONDS", 300)),
		},
		RateLimitExtract: RateLimitRule{
			Max:    getEnvInt("RATE_LIMIT_EXTRACT_MAX", 30),
			Window: time.Second * time.Duration(getEnvInt("RATE_LIMIT_EXTRACT_WINDOW_SECONDS", 60)),
		},
		RateLimitExport: RateLimitRule{
			Max:    getEnvInt("RATE_LIMIT_EXPORT_MAX", 30),
			Window: time.Second * time.Duration(getEnvInt("RATE_LIMIT_EXPORT_WINDOW_SECONDS", 60)),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
