/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the multi-tenant HR server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present), the environment, then command-line flags
  2. Install the JSON slog logger and OpenTelemetry tracing
  3. Open the master store (PostgreSQL or SQLite)
  4. Seed the platform administrator
  5. Create the tenant registry, onboarder and rollover scheduler
  6. Configure HTTP router and start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    Listen address (overrides APP_ADDR)
  -data    Tenant database directory (overrides DATA_DIR)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close every tenant database and the master store
  5. Flush traces

EXAMPLES:
  # Run with defaults (./data/master.db, ./data/tenant_<slug>.db)
  SUPER_ADMIN_EMAIL=root@example.com SUPER_ADMIN_PASSWORD=secret ./server

  # PostgreSQL master store
  MASTER_DATABASE_URL=postgres://hrms@localhost/hrms ./server -data=/var/lib/hrms

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - tenant/registry.go: Tenant databases
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/hrms/api"
	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/config"
	"github.com/warp/hrms/generic"
	"github.com/warp/hrms/store/postgres"
	"github.com/warp/hrms/store/sqlite"
	"github.com/warp/hrms/telemetry"
	"github.com/warp/hrms/tenant"
	"github.com/warp/hrms/user"
)

// masterStore is what the master database must provide.
type masterStore interface {
	tenant.Directory
	user.PlatformAdminStore
	Close() error
}

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	// Flags
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "tenant database directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	shutdownTracing := telemetry.Setup(ctx, cfg.ServiceName, logger)

	master, err := openMaster(ctx, cfg)
	if err != nil {
		logger.Error("failed to open master store", "error", err)
		os.Exit(1)
	}

	if err := seedPlatformAdmin(ctx, master, cfg, logger); err != nil {
		logger.Error("failed to seed platform admin", "error", err)
		os.Exit(1)
	}

	registry := tenant.NewRegistry(master, sqlite.NewProvisioner(cfg.DataDir), logger)
	onboarder := tenant.NewOnboarder(master, registry, logger)

	scheduler := api.NewRolloverScheduler(registry, logger)
	scheduler.Enabled = cfg.RolloverEnabled
	scheduler.CheckInterval = cfg.RolloverInterval
	scheduler.Start()

	handler := api.NewHandler(registry, onboarder, master, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL), scheduler, logger)

	// Create router
	router := api.NewRouter(handler, api.Options{
		CORSOrigins:             cfg.CORSOrigins,
		RateLimitPerMinute:      cfg.RateLimitPerMinute,
		LoginRateLimitPerMinute: cfg.LoginRateLimitPerMinute,
		Logger:                  logger,
	})

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "env", cfg.Environment, "data_dir", cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	scheduler.Stop()
	if err := registry.Close(); err != nil {
		logger.Error("failed to close tenant databases", "error", err)
	}
	if err := master.Close(); err != nil {
		logger.Error("failed to close master store", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}

	logger.Info("server stopped")
}

func openMaster(ctx context.Context, cfg config.Config) (masterStore, error) {
	if cfg.UsesPostgres() {
		pg, err := postgres.Connect(ctx, cfg.MasterDatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	lite, err := sqlite.NewMaster(cfg.MasterPath())
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// seedPlatformAdmin upserts the configured superadmin, keeping its ID
// across restarts. Nothing is seeded when no email is configured.
func seedPlatformAdmin(ctx context.Context, admins user.PlatformAdminStore, cfg config.Config, logger *slog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SuperAdminEmail))
	if email == "" {
		logger.Warn("SUPER_ADMIN_EMAIL not set; no platform administrator seeded")
		return nil
	}

	hash, err := auth.HashPassword(cfg.SuperAdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := user.User{
		ID:        generic.NewID(),
		Email:     email,
		FirstName: "Platform",
		LastName:  "Admin",
		CreatedAt: now,
	}
	existing, err := admins.GetPlatformAdmin(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		admin = *existing
	}
	admin.PasswordHash = hash
	admin.Active = true
	admin.UpdatedAt = now

	if err := admins.SavePlatformAdmin(ctx, admin); err != nil {
		return err
	}
	logger.Info("platform admin ready", "email", admin.Email)
	return nil
}
