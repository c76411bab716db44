package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/monocle-dev/crewboard/db"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/config"
	"github.com/monocle-dev/crewboard/internal/handlers"
	"github.com/monocle-dev/crewboard/internal/logger"
	"github.com/monocle-dev/crewboard/internal/metrics"
	"github.com/monocle-dev/crewboard/internal/middleware"
	"github.com/monocle-dev/crewboard/internal/notify"
	"github.com/monocle-dev/crewboard/internal/realtime"
	"github.com/monocle-dev/crewboard/internal/router"
	"github.com/monocle-dev/crewboard/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg := config.Load()
	appLogger := logger.New("crewboard", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, appLogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.ConnectDatabase(cfg)
	if err != nil {
		return err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.MigrateDatabase(ctx, gdb, appLogger); err != nil {
		return err
	}
	if err := db.SeedAdmin(ctx, gdb, cfg, appLogger); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	appMetrics, err := metrics.New(registry)
	if err != nil {
		return err
	}

	tokens, err := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(appLogger)
	dispatcher := notify.NewDispatcher(gdb, appLogger, appMetrics, hub)
	queue := notify.NewQueue(dispatcher, cfg.NotifyQueueSize, appLogger)
	queue.Start()
	defer queue.Stop()

	limiter, closeLimiter := newRateLimiter(ctx, cfg, appLogger)
	defer closeLimiter()

	handler := &handlers.Handler{
		DB:             gdb,
		Users:          services.NewUsers(gdb, tokens, appLogger),
		Teams:          services.NewTeams(gdb, queue, appLogger),
		Provisioner:    services.NewProvisioner(gdb, queue, appLogger, appMetrics),
		Workflow:       services.NewWorkflow(gdb, queue, appLogger),
		Hub:            hub,
		Logger:         appLogger,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	r := router.NewRouter(router.Options{
		Handler:        handler,
		Tokens:         tokens,
		Limiter:        limiter,
		Metrics:        appMetrics,
		Gatherer:       registry,
		Logger:         appLogger,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newRateLimiter prefers Redis when configured and reachable and falls back
// to an in-memory limiter.
func newRateLimiter(ctx context.Context, cfg config.Config, appLogger *slog.Logger) (middleware.RateLimiter, func()) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			appLogger.Info("using redis rate limiter", "addr", cfg.RedisAddr)
			return middleware.NewRedisRateLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow), func() { _ = client.Close() }
		}

		appLogger.Warn("redis unavailable, using in-memory rate limiter", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
	}

	return middleware.NewMemoryRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), func() {}
}
