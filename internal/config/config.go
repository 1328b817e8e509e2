// Package config defines the configuration structures for the appeal
// analysis service.  No I/O or parsing logic lives here, only plain data
// types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/appeal"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EngineConfig holds the deployment-wide analysis knobs.  Each API request
// may override them and must always carry its own valuation date; these are
// the fallbacks when a request leaves a knob unset.
type EngineConfig struct {
	MaxComparables         int     `mapstructure:"max_comparables"`
	MaxDistanceMiles       float64 `mapstructure:"max_distance_miles"`
	RecentSaleWindowMonths int     `mapstructure:"recent_sale_window_months"`
	MinDollarFloor         float64 `mapstructure:"min_dollar_floor"`
	AssessmentRatio        float64 `mapstructure:"assessment_ratio"`
}

// Options converts the engine section into per-analysis options.  The
// valuation date is left zero deliberately; every request supplies its own.
func (e EngineConfig) Options() appeal.Options {
	return appeal.Options{
		MaxComparables:         e.MaxComparables,
		MaxDistanceMiles:       e.MaxDistanceMiles,
		RecentSaleWindowMonths: e.RecentSaleWindowMonths,
		MinDollarFloor:         e.MinDollarFloor,
		AssessmentRatio:        e.AssessmentRatio,
	}
}

// CacheConfig holds analysis result-cache tunables.
type CacheConfig struct {
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
}

// WorkerConfig holds batch-analysis execution parameters.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for the service.  The thresholds table is
// the versioned decision-constant set the engine reads; everything else is
// operational plumbing.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Engine     EngineConfig      `mapstructure:"engine"`
	Thresholds appeal.Thresholds `mapstructure:"thresholds"`
	Cache      CacheConfig       `mapstructure:"cache"`
	Worker     WorkerConfig      `mapstructure:"worker"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Log        LogConfig         `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Engine
	if c.Engine.MaxComparables < 1 {
		return fmt.Errorf("config: engine.max_comparables must be ≥ 1, got %d", c.Engine.MaxComparables)
	}
	if c.Engine.MaxDistanceMiles <= 0 {
		return fmt.Errorf("config: engine.max_distance_miles must be positive, got %.2f", c.Engine.MaxDistanceMiles)
	}
	if c.Engine.RecentSaleWindowMonths < 1 {
		return fmt.Errorf("config: engine.recent_sale_window_months must be ≥ 1, got %d", c.Engine.RecentSaleWindowMonths)
	}
	if c.Engine.MinDollarFloor < 0 {
		return fmt.Errorf("config: engine.min_dollar_floor must be ≥ 0, got %.2f", c.Engine.MinDollarFloor)
	}
	if c.Engine.AssessmentRatio <= 0 || c.Engine.AssessmentRatio > 1 {
		return fmt.Errorf("config: engine.assessment_ratio must be in (0, 1], got %.4f", c.Engine.AssessmentRatio)
	}

	// Thresholds
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("config: thresholds: %w", err)
	}

	// Cache
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("config: cache.default_ttl must be positive, got %s", c.Cache.DefaultTTL)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("config: cache.max_entries must be ≥ 1, got %d", c.Cache.MaxEntries)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.QueueDepth < 1 {
		return fmt.Errorf("config: worker.queue_depth must be ≥ 1, got %d", c.Worker.QueueDepth)
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
