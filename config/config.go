/*
config.go - Process configuration from the environment

PURPOSE:
  Collects every tunable of the server in one Config value. main loads a
  .env file first (if present), then Load reads the environment, then
  command-line flags override Addr and DataDir.

KEYS:
  APP_ADDR                       listen address                (:8080)
  APP_ENV                        development | production      (development)
  DATA_DIR                       tenant database directory     (data)
  MASTER_DATABASE_URL            postgres:// URL, else SQLite  (<DATA_DIR>/master.db)
  JWT_SECRET / JWT_TTL           token signing                 (dev secret / 24h)
  CORS_ORIGINS                   comma separated origins
  RATE_LIMIT_PER_MINUTE          per-IP limit, all routes      (120)
  LOGIN_RATE_LIMIT_PER_MINUTE    per-IP limit, login           (10)
  SUPER_ADMIN_EMAIL / _PASSWORD  platform admin seeded at boot
  ROLLOVER_ENABLED / _INTERVAL   policy rollover scheduler     (true / 1h)
  LOG_LEVEL                      debug | info | warn | error   (info)
  OTEL_SERVICE_NAME              trace resource name           (hrms)

SEE ALSO:
  - cmd/server/main.go: Flag overrides and startup
  - telemetry/telemetry.go: Reads the OTEL_EXPORTER_OTLP_* keys itself
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Addr                    string
	Environment             string
	DataDir                 string
	MasterDatabaseURL       string
	JWTSecret               string
	JWTTTL                  time.Duration
	CORSOrigins             []string
	RateLimitPerMinute      int
	LoginRateLimitPerMinute int
	SuperAdminEmail         string
	SuperAdminPassword      string
	RolloverEnabled         bool
	RolloverInterval        time.Duration
	LogLevel                string
	ServiceName             string
}

func Load() Config {
	return Config{
		Addr:                    getEnv("APP_ADDR", ":8080"),
		Environment:             getEnv("APP_ENV", "development"),
		DataDir:                 getEnv("DATA_DIR", "data"),
		MasterDatabaseURL:       getEnv("MASTER_DATABASE_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", devJWTSecret),
		JWTTTL:                  getEnvDuration("JWT_TTL", 24*time.Hour),
		CORSOrigins:             getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RateLimitPerMinute:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		LoginRateLimitPerMinute: getEnvInt("LOGIN_RATE_LIMIT_PER_MINUTE", 10),
		SuperAdminEmail:         getEnv("SUPER_ADMIN_EMAIL", ""),
		SuperAdminPassword:      getEnv("SUPER_ADMIN_PASSWORD", ""),
		RolloverEnabled:         getEnvBool("ROLLOVER_ENABLED", true),
		RolloverInterval:        getEnvDuration("ROLLOVER_INTERVAL", time.Hour),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		ServiceName:             getEnv("OTEL_SERVICE_NAME", "hrms"),
	}
}

// MasterPath is the SQLite master database used when no URL is configured.
func (c Config) MasterPath() string {
	return filepath.Join(c.DataDir, "master.db")
}

// UsesPostgres reports whether the master store lives in PostgreSQL.
func (c Config) UsesPostgres() bool {
	return strings.HasPrefix(c.MasterDatabaseURL, "postgres://") ||
		strings.HasPrefix(c.MasterDatabaseURL, "postgresql://")
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
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
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("APP_ADDR must not be empty")
	}
	if c.MasterDatabaseURL != "" && !c.UsesPostgres() {
		return fmt.Errorf("MASTER_DATABASE_URL must start with postgres:// or postgresql://")
	}
	if !c.UsesPostgres() && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DATA_DIR is required when the master store is SQLite")
	}
	if c.Environment == "production" {
		if c.JWTSecret == devJWTSecret || len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be set to at least 32 characters in production")
		}
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.RateLimitPerMinute <= 0 || c.LoginRateLimitPerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if (c.SuperAdminEmail == "") != (c.SuperAdminPassword == "") {
		return fmt.Errorf("SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASSWORD must be set together")
	}
	if c.RolloverEnabled && c.RolloverInterval < time.Minute {
		return fmt.Errorf("ROLLOVER_INTERVAL must be at least 1m")
	}
	return nil
}
