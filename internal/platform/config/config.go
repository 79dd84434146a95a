package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                 string
	DatabaseURL          string
	JWTSecret            string
	Environment          string
	MigrationsDir        string
	RunMigrations        bool
	EmailFrom            string
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPUseTLS           bool
	YearRolloverInterval time.Duration
	MetricsEnabled       bool
	CORSAllowedOrigins   []string
	Timezone             string
}

func Load() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		Environment:          getEnv("APP_ENV", "development"),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		EmailFrom:            getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:         getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:           getEnvBool("SMTP_USE_TLS", true),
		YearRolloverInterval: getEnvDuration("YEAR_ROLLOVER_INTERVAL", 6*time.Hour),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		CORSAllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		Timezone:             getEnv("LEAVE_TIMEZONE", "UTC"),
	}
}

// Location resolves Timezone, falling back to UTC for unknown zone names.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Environment == "production" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.YearRolloverInterval < 0 {
		return fmt.Errorf("YEAR_ROLLOVER_INTERVAL must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("LEAVE_TIMEZONE is invalid: %w", err)
	}
	return nil
}
