package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openadmod/console/internal/api"
	"github.com/openadmod/console/internal/cache"
	"github.com/openadmod/console/internal/config"
	"github.com/openadmod/console/internal/listview"
	"github.com/openadmod/console/internal/middleware"
	"github.com/openadmod/console/internal/moderation"
	"github.com/openadmod/console/internal/observability"
	"github.com/openadmod/console/internal/prefs"
	"github.com/openadmod/console/internal/stats"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	// Response cache: Redis when configured, in-process otherwise.
	var responseCache cache.Store
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.ServiceName+":")
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer redisCache.Close()
		responseCache = redisCache
	} else {
		memCache := cache.NewMemory()
		memCache.StartCleanup(ctx, 10*time.Minute)
		responseCache = memCache
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	client := moderation.NewClient(cfg.ModerationAPIURL, cfg.ClientTimeout, logger, metricsRegistry)
	fetcher := listview.NewFetcher(client, responseCache, cfg.ListCacheTTL, logger, metricsRegistry)
	statsSvc := stats.NewService(client, responseCache, cfg.ListCacheTTL, logger)
	prefStore := prefs.Open(cfg.PrefsPath, logger)

	srvDeps := api.NewServer(logger, client, fetcher, statsSvc, prefStore, metricsRegistry, cfg)

	r := mux.NewRouter()
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithTraceLogger(logger))
	r.Use(api.WithRequestMetrics(metricsRegistry))

	console := r.PathPrefix("/console").Subrouter()
	console.HandleFunc("/ads", srvDeps.ListAdsHandler).Methods("GET")
	console.HandleFunc("/ads/{id}", srvDeps.AdDetailsHandler).Methods("GET")
	console.HandleFunc("/ads/{id}/approve", srvDeps.ApproveHandler).Methods("POST")
	console.HandleFunc("/ads/{id}/reject", srvDeps.RejectHandler).Methods("POST")
	console.HandleFunc("/ads/{id}/request-changes", srvDeps.RequestChangesHandler).Methods("POST")
	console.HandleFunc("/stats", srvDeps.StatsHandler).Methods("GET")
	console.HandleFunc("/theme", srvDeps.ThemeHandler).Methods("GET")
	console.HandleFunc("/theme", srvDeps.SetThemeHandler).Methods("PUT")

	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Moderation console running",
		zap.String("addr", addr),
		zap.String("upstream", cfg.ModerationAPIURL),
		zap.Duration("cache_ttl", cfg.ListCacheTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
