package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName     string
	AppEnv      string
	AppURL      string
	FrontendURL string
	Port        string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret                string
	JWTExpiry                time.Duration
	SessionExpiry            time.Duration
	TokenMagicLinkExpiry     time.Duration
	TokenPasswordResetExpiry time.Duration
	TokenEmailVerifyExpiry   time.Duration

	// Rate limiting
	RateLimitLoginAttempts         int
	RateLimitLoginWindow           time.Duration
	RateLimitMagicLinkAttempts     int
	RateLimitMagicLinkWindow       time.Duration
	RateLimitPasswordResetAttempts int
	RateLimitPasswordResetWindow   time.Duration
	RateLimitRetention             time.Duration

	// OAuth
	GoogleClientID       string
	GoogleClientSecret   string
	LinkedInClientID     string
	LinkedInClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// CORS
	CORSOrigins []string

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:     envString("APP_NAME", "Authbase"),
		AppEnv:      envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:      envString("APP_URL", "http://localhost:8000"),
		FrontendURL: envString("FRONTEND_URL", "http://localhost:3000"),
		Port:        envString("PORT", "8000"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/authbase.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:                envRequired("JWT_SECRET"),
		JWTExpiry:                envDuration("JWT_EXPIRY", 30*time.Minute),
		SessionExpiry:            envDuration("SESSION_EXPIRY", 168*time.Hour),                  // 7 days
		TokenMagicLinkExpiry:     envDuration("TOKEN_MAGIC_LINK_EXPIRY", 15*time.Minute),       // 15 minutes
		TokenPasswordResetExpiry: envDuration("TOKEN_PASSWORD_RESET_EXPIRY", 30*time.Minute),   // 30 minutes
		TokenEmailVerifyExpiry:   envDuration("TOKEN_EMAIL_VERIFY_EXPIRY", 24*time.Hour),       // 24 hours

		// Rate limiting (per client IP)
		RateLimitLoginAttempts:         envInt("RATE_LIMIT_LOGIN_ATTEMPTS", 5),
		RateLimitLoginWindow:           envDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
		RateLimitMagicLinkAttempts:     envInt("RATE_LIMIT_MAGIC_LINK_ATTEMPTS", 3),
		RateLimitMagicLinkWindow:       envDuration("RATE_LIMIT_MAGIC_LINK_WINDOW", 15*time.Minute),
		RateLimitPasswordResetAttempts: envInt("RATE_LIMIT_PASSWORD_RESET_ATTEMPTS", 3),
		RateLimitPasswordResetWindow:   envDuration("RATE_LIMIT_PASSWORD_RESET_WINDOW", time.Hour),
		RateLimitRetention:             envDuration("RATE_LIMIT_RETENTION", 24*time.Hour),

		// OAuth
		GoogleClientID:       envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   envString("GOOGLE_CLIENT_SECRET", ""),
		LinkedInClientID:     envString("LINKEDIN_CLIENT_ID", ""),
		LinkedInClientSecret: envString("LINKEDIN_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// CORS
		CORSOrigins: envList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for
// production deployments. Development allows email to fall back to log mode.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
