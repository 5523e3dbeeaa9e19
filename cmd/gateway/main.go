package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api"
	"github.com/V4T54L/tenant-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/tenant-gateway/internal/adapter/api/middleware"
	"github.com/V4T54L/tenant-gateway/internal/adapter/identity"
	"github.com/V4T54L/tenant-gateway/internal/adapter/metrics"
	"github.com/V4T54L/tenant-gateway/internal/adapter/pii"
	"github.com/V4T54L/tenant-gateway/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/tenant-gateway/internal/adapter/repository/redis"
	"github.com/V4T54L/tenant-gateway/internal/adapter/supabase"
	"github.com/V4T54L/tenant-gateway/internal/domain"
	"github.com/V4T54L/tenant-gateway/internal/pkg/config"
	"github.com/V4T54L/tenant-gateway/internal/pkg/logger"
	"github.com/V4T54L/tenant-gateway/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	m := metrics.NewGatewayMetrics(reg)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handler.DependencyCheck)

	// --- Identity Provider ---
	redactor := pii.NewRedactor(cfg.PIIRedactionFields, logger)
	supabaseOpts := supabase.Options{URL: cfg.SupabaseURL, ServiceKey: cfg.SupabaseSecretKey, Timeout: cfg.ProviderTimeout}
	authClient := supabase.NewAuthClient(supabaseOpts, redactor, logger)

	var (
		userResolver domain.UserResolver
		invalidator  usecase.TokenInvalidator
	)
	if cfg.SupabaseJWTSecret != "" {
		logger.Info("verifying access tokens locally")
		userResolver = identity.NewJWTResolver(cfg.SupabaseJWTSecret, "", logger)
	} else {
		cached := identity.NewCachedUserResolver(authClient, cfg.TokenCacheTTL, logger, m)
		userResolver = cached
		invalidator = cached
	}

	// --- Tenant Directory ---
	var directory domain.TenantDirectory
	switch cfg.DirectoryBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if cfg.PostgresMigrate {
			if err := postgres.Migrate(ctx, db, logger); err != nil {
				logger.Error("failed to migrate postgres schema", "error", err)
				os.Exit(1)
			}
		}
		directory = postgres.NewDirectory(db, logger)
		checks["postgres"] = db.PingContext
	default:
		directory = supabase.NewRestClient(supabaseOpts, redactor, logger)
	}

	// --- Phone Cache ---
	var phoneCache domain.PhoneTenantCache
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, phone lookups will hit the directory", "error", err)
		}
		cache := redisrepo.NewPhoneTenantCache(redisClient, cfg.PhoneCacheTTL, logger)
		phoneCache = cache
		checks["redis"] = cache.Ping
	}

	// --- Initialize Use Cases ---
	verifier := usecase.NewTokenVerifier(userResolver, logger, m)
	membershipResolver := usecase.NewMembershipResolver(directory, logger)
	signupUseCase := usecase.NewSignupUseCase(authClient, directory, usecase.SignupOptions{
		DefaultTimezone: cfg.DefaultTimezone,
		Compensate:      cfg.SignupCompensate,
	}, logger, m)
	sessionUseCase := usecase.NewSessionUseCase(authClient, verifier, membershipResolver, directory, invalidator, logger)
	tenantUseCase := usecase.NewTenantUseCase(directory, logger)
	phoneResolver := usecase.NewPhoneResolver(directory, phoneCache, logger, m)

	// --- Start Admin and Metrics Server ---
	adminHandler := handler.NewAdminHandler(phoneResolver, checks, logger)
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(adminHandler, reg, logger),
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Initialize Gateway Server ---
	guard := middleware.NewGuard(verifier, membershipResolver, logger)
	router := api.NewRouter(cfg, logger, m, guard,
		handler.NewAuthHandler(signupUseCase, sessionUseCase, logger, cfg.MaxBodyBytes),
		handler.NewTenantHandler(tenantUseCase, logger, cfg.MaxBodyBytes),
	)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting gateway server", "addr", server.Addr, "directory", cfg.DirectoryBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
