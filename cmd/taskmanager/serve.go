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

	"github.com/redis/go-redis/v9"

	"task-manager/internal/api"
	"task-manager/internal/auth"
	"task-manager/internal/config"
	"task-manager/internal/metrics"
	"task-manager/internal/ratelimit"
	"task-manager/internal/repository"
	"task-manager/internal/service"
	"task-manager/internal/telemetry"
)

func serve(parent context.Context, logLevel string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(logLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: appName,
		Endpoint:    cfg.OTelEndpoint,
	}, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer sqlDB.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	err = repository.Migrate(migrateCtx, db)
	cancel()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var (
		limiter  ratelimit.Limiter = ratelimit.NewInMemory(cfg.AuthRateWindow)
		denylist auth.Denylist     = auth.NewMemoryDenylist()
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to in-memory state until it recovers", "error", err)
		}
		cancel()
		limiter = ratelimit.NewRedis(client, cfg.AuthRateWindow, logger)
		denylist = auth.NewRedisDenylist(client, logger)
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	priorityRepo := repository.NewPriorityRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authSvc := service.NewAuthService(userRepo, auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn), denylist, logger)
	taskSvc := service.NewTaskService(taskRepo, categoryRepo, priorityRepo)

	registry := metrics.NewRegistry(sqlDB)
	scheduler := service.NewSchedulerService(time.UTC, logger)
	refreshGauges := func(ctx context.Context) error {
		return registry.RefreshTaskGauges(ctx, taskRepo, time.Now())
	}
	if cfg.MetricsRefreshInterval > 0 {
		if _, err := scheduler.ScheduleInterval("refresh-task-gauges", cfg.MetricsRefreshInterval, 30*time.Second, refreshGauges); err != nil {
			return fmt.Errorf("schedule gauges: %w", err)
		}
		scheduler.RunNow("refresh-task-gauges", 30*time.Second, refreshGauges)
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := api.NewServer(
		authSvc,
		taskSvc,
		service.NewCategoryService(categoryRepo),
		service.NewPriorityService(priorityRepo),
		limiter,
		registry,
		func(ctx context.Context) error { return repository.Ping(ctx, db) },
		api.Options{
			AuthRateLimit:      cfg.AuthRateLimit,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			ServiceName:        appName,
			TrustedProxies:     cfg.TrustedProxies,
		},
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("task-manager listening", "addr", cfg.HTTPAddr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
