package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huddle-app/huddle/internal/audit"
	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/cache"
	"github.com/huddle-app/huddle/internal/platform/config"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/huddle-app/huddle/internal/platform/middleware"
	"github.com/huddle-app/huddle/internal/platform/server"
	"github.com/huddle-app/huddle/internal/platform/telemetry"
	"github.com/huddle-app/huddle/internal/stream"
	"github.com/huddle-app/huddle/internal/team"
	"github.com/huddle-app/huddle/internal/tenant"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	slog.Info("huddle starting",
		"version", version,
		"port", cfg.Server.Port,
	)

	if cfg.Auth.JWT.SigningKey == "" {
		return errors.New("auth.jwt.signingkey is required")
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("connecting to database")
	pool, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns,
		database.WithConnectRetry(cfg.Database.ConnectRetries, time.Second))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	migrationsURL := fmt.Sprintf("file://%s", cfg.Database.MigrationsPath)
	if err := database.RunMigrations(cfg.Database.URL, migrationsURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("migrations complete")

	// Audit
	auditLogger := audit.NewAsyncLogger(pool, audit.NewStore(), audit.LoggerConfig{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: time.Duration(cfg.Audit.FlushIntervalMS) * time.Millisecond,
	})
	defer auditLogger.Close()

	// Auth
	tokenSvc := auth.NewTokenService(
		cfg.Auth.JWT.SigningKey,
		cfg.Auth.JWT.Issuer,
		cfg.Auth.JWT.ExpiryHours,
		cfg.Auth.JWT.RefreshExpiryHours,
	)
	authStore := auth.NewStore(pool)

	tenantStore := tenant.NewStore()
	userStore := tenant.NewUserStore()
	registrar := tenant.NewRegistrar(pool, tenantStore, userStore, auditLogger)
	authHandler := auth.NewHandler(tokenSvc, authStore, registrar)

	rateLimit, closeLimiter, err := buildAuthRateLimit(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	// Streaming
	hub := stream.NewHub(cfg.Stream.BufferSize, logger)
	broker, err := buildBroker(cfg.NATS, hub)
	if err != nil {
		return err
	}
	defer broker.Close()

	teamSvc := team.NewService(pool, userStore, broker, auditLogger)

	if cfg.Auth.DevMode {
		slog.Warn("running in dev mode, requests may authenticate with " + auth.DevEmailHeader)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, server.Dependencies{
		Pool:               pool,
		Auth:               tokenSvc,
		AuthHandler:        authHandler,
		TenantHandler:      tenant.NewHandler(pool, tenantStore),
		UserHandler:        tenant.NewUserHandler(pool, userStore),
		TeamHandler:        team.NewHandler(teamSvc),
		StreamHandler:      team.NewStreamHandler(tokenSvc, teamSvc, hub, cfg.Server.CORSOrigins),
		AuthRateLimit:      rateLimit,
		DevMode:            cfg.Auth.DevMode,
		IdentityLookup:     authStore,
		Logger:             logger,
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		return broker.Run(gctx)
	})

	slog.Info("server ready", "addr", addr, "dev_mode", cfg.Auth.DevMode, "nats", cfg.NATS.URL != "")
	return g.Wait()
}

// buildBroker returns a NATS-backed broker when a URL is configured and an
// in-process one otherwise.
func buildBroker(cfg config.NATSConfig, hub *stream.Hub) (stream.Broker, error) {
	if cfg.URL == "" {
		slog.Info("message stream using local broker")
		return stream.NewLocalBroker(hub), nil
	}

	nc, err := stream.ConnectNATS(cfg.URL, "huddle")
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	slog.Info("message stream using nats", "url", cfg.URL, "prefix", cfg.Prefix)
	return stream.NewNATSBroker(nc, hub, cfg.Prefix), nil
}

// buildAuthRateLimit returns the login/register limiter, or nil when rate
// limiting is off or no Redis URL is configured.
func buildAuthRateLimit(ctx context.Context, cfg *config.Config) (func(http.Handler) http.Handler, func(), error) {
	noop := func() {}
	if !cfg.RateLimit.Enabled || cfg.Redis.URL == "" {
		slog.Info("auth rate limiting disabled")
		return nil, noop, nil
	}

	rc, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, noop, fmt.Errorf("connecting to redis: %w", err)
	}

	window := time.Duration(cfg.RateLimit.WindowSecs) * time.Second
	var opts []middleware.RateLimitOption
	if cfg.RateLimit.TrustProxy {
		opts = append(opts, middleware.TrustForwardedFor())
	}
	slog.Info("auth rate limiting enabled", "limit", cfg.RateLimit.Limit, "window", window, "trust_proxy", cfg.RateLimit.TrustProxy)
	return middleware.RateLimit(rc, "auth", cfg.RateLimit.Limit, window, opts...), func() { _ = rc.Close() }, nil
}
