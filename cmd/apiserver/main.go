// Command apiserver boots the appeal analysis HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/application/analysis"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/config"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/cache/memory"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/logging"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http/handlers"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http/middleware"

	httpserver "github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http"
)

const defaultConfigPath = "configs/config.yaml"

// Build-time variables injected via ldflags.
var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	logger.Info("starting appeal analysis server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("thresholds_version", cfg.Thresholds.Version),
	)

	var (
		appMetrics     *prometheus.AppMetrics
		metricsHandler http.Handler
		recorder       analysis.MetricsRecorder
	)
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewCollector(prometheus.CollectorConfig{
			Namespace: cfg.Metrics.Namespace,
			Subsystem: cfg.Metrics.Subsystem,
		}, logger)
		if err != nil {
			return fmt.Errorf("build metrics collector: %w", err)
		}
		appMetrics = prometheus.NewAppMetrics(collector)
		metricsHandler = collector.Handler()
		recorder = prometheus.NewRecorder(appMetrics)
	}

	resultCache := memory.NewCache(logger.Named("cache"),
		memory.WithKeyPrefix(cfg.Cache.KeyPrefix),
		memory.WithDefaultTTL(cfg.Cache.DefaultTTL),
		memory.WithMaxEntries(cfg.Cache.MaxEntries),
		memory.WithCleanupInterval(cfg.Cache.CleanupInterval),
	)
	defer resultCache.Stop()

	svc, err := analysis.NewService(analysis.ServiceConfig{
		Defaults:    cfg.Engine.Options(),
		Thresholds:  cfg.Thresholds,
		Concurrency: cfg.Worker.Concurrency,
		CacheTTL:    cfg.Cache.DefaultTTL,
	}, analysis.Deps{
		Logger:  logger.Named("analysis"),
		Cache:   resultCache,
		Metrics: recorder,
	})
	if err != nil {
		return fmt.Errorf("build analysis service: %w", err)
	}

	corsCfg := middleware.DefaultCORSConfig()
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Analysis: handlers.NewAnalysisHandler(svc, logger.Named("http")),
		Health: handlers.NewHealthHandler(version,
			&cacheChecker{cache: resultCache},
			&thresholdsChecker{svc: svc},
		),
		Logger:         logger.Named("http"),
		Metrics:        appMetrics,
		MetricsHandler: metricsHandler,
		Mode:           cfg.Server.Mode,
		MaxBodySize:    cfg.Server.MaxBodySize,
		CORS:           &corsCfg,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger.Named("http"))

	// Hot-reload the thresholds table on config file changes.  Invalid
	// tables are rejected and the running one stays in effect.
	if fileExists(configPath) {
		watchErr := config.Watch(configPath, func(next *config.Config) {
			if err := svc.UpdateThresholds(next.Thresholds); err != nil {
				logger.Warn("rejected thresholds update", logging.Err(err))
				return
			}
			logger.Info("thresholds updated",
				logging.String("version", next.Thresholds.Version))
		})
		if watchErr != nil {
			logger.Warn("config watch unavailable", logging.Err(watchErr))
		}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return err
	}
	return <-serveErr
}

// loadConfig reads the file when present, otherwise falls back to
// environment variables over built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if fileExists(path) {
		return config.Load(path)
	}
	fmt.Fprintf(os.Stderr, "apiserver: config file %s not found, using environment and defaults\n", path)
	return config.LoadFromEnv()
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
