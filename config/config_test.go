package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hrms/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ADDR", "")
	t.Setenv("MASTER_DATABASE_URL", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("SUPER_ADMIN_EMAIL", "")
	t.Setenv("SUPER_ADMIN_PASSWORD", "")

	cfg := config.Load()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.UsesPostgres())
	assert.NotEmpty(t, cfg.CORSOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("MASTER_DATABASE_URL", "postgres://hr:hr@localhost:5432/master")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ROLLOVER_ENABLED", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := config.Load()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.RolloverEnabled)
	assert.Equal(t, 120, cfg.RateLimitPerMinute, "unparseable values fall back")
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestValidate(t *testing.T) {
	t.Setenv("MASTER_DATABASE_URL", "")
	t.Setenv("SUPER_ADMIN_EMAIL", "")
	t.Setenv("SUPER_ADMIN_PASSWORD", "")
	t.Setenv("JWT_SECRET", "")

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"non-postgres url", func(c *config.Config) { c.MasterDatabaseURL = "mysql://x" }},
		{"weak secret in production", func(c *config.Config) { c.Environment = "production" }},
		{"half a superadmin", func(c *config.Config) { c.SuperAdminEmail = "root@platform.io"; c.SuperAdminPassword = "" }},
		{"zero rate limit", func(c *config.Config) { c.LoginRateLimitPerMinute = 0 }},
		{"tiny rollover interval", func(c *config.Config) { c.RolloverEnabled = true; c.RolloverInterval = time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Load()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
