package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/api/rest"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/cache"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/config"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/corpus"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/telemetry"
	"github.com/davidleathers/contact-guardian/internal/metrics"
	"github.com/davidleathers/contact-guardian/internal/service"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("application failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting contact-guardian",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port))

	provider, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	otelMetrics, err := metrics.NewRegistry(cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("creating otel instruments: %w", err)
	}
	recorder := metrics.NewRecorder(metrics.NewCollectors(registry), otelMetrics)

	opts := service.Options{Recorder: recorder}
	var cacheManager *cache.Manager
	if cfg.Redis.Enabled {
		cacheManager, err = cache.NewManager(&cfg.Redis, logger.Named("cache"))
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer cacheManager.Close()
		opts.Cache = cacheManager.Verifications
	}

	svc, err := service.NewServiceFactories(cfg, logger).Build(opts)
	if err != nil {
		return fmt.Errorf("building services: %w", err)
	}

	report, err := svc.Store.Reload(ctx)
	switch {
	case svc.Store.Current() == nil:
		return fmt.Errorf("loading corpus: %w", err)
	case err != nil:
		logger.Warn("corpus source unavailable, serving sample corpus", zap.Error(err))
	default:
		logger.Info("corpus loaded",
			zap.String("source", report.Source),
			zap.String("version", report.Version),
			zap.Int("records", report.Loaded),
			zap.Int("skipped", report.Skipped))
	}

	if cfg.Corpus.Watch && cfg.Corpus.Path != "" {
		watcher, err := corpus.NewWatcher(cfg.Corpus.Path, cfg.Corpus.WatchDebounce, svc.Store, logger.Named("watcher"))
		if err != nil {
			logger.Warn("corpus watcher disabled", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("corpus watcher failed to start", zap.Error(err))
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}
	go svc.Store.RunPeriodic(ctx, cfg.Corpus.ReloadInterval)

	health := rest.NewHealthService(rest.HealthConfig{
		CacheDuration:  5 * time.Second,
		Timeout:        2 * time.Second,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
	})
	health.RegisterChecker(rest.NewCorpusHealthChecker(svc.Store))
	if cacheManager != nil {
		health.RegisterChecker(rest.NewDependencyHealthChecker("redis", cacheManager.Health, false))
	}

	server, err := rest.NewServer(rest.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Version:         cfg.Version,
		Environment:     cfg.Environment,
		WebSocket:       rest.DefaultWebSocketConfig(),
	}, rest.Dependencies{
		Verifier:   svc.Verifier,
		Analyzer:   svc.Analyzer,
		Finder:     svc.Assistant,
		Store:      svc.Store,
		Signatures: svc,
		Health:     health,
		Limiter:    newLimiter(ctx, cfg.RateLimit, cacheManager, logger),
		Observer:   recorder,
		Gatherer:   registry,
		Logger:     logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	if err := server.Shutdown(context.Background()); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// newLimiter picks the redis-backed limiter when configured and available
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, cm *cache.Manager, logger *zap.Logger) rest.Limiter {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Distributed && cm != nil {
		limit := int(cfg.RequestsPerSecond * cfg.Window.Seconds())
		if limit < cfg.BurstSize {
			limit = cfg.BurstSize
		}
		return rest.NewDistributedLimiter(cm.RateLimiter, limit, cfg.Window, logger.Named("ratelimit"))
	}
	if cfg.Distributed {
		logger.Warn("distributed rate limiting needs redis, using local limiter")
	}
	l := rest.NewLocalLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	go rest.RunEviction(ctx, l, time.Minute)
	return l
}
