// Package http assembles the gin route tree and the server around it.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/logging"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http/handlers"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http/middleware"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/types"
)

// RouterConfig aggregates the handlers and middleware dependencies needed to
// build the full route tree.  Nil fields disable their feature.
type RouterConfig struct {
	// Handlers
	Analysis *handlers.AnalysisHandler
	Health   *handlers.HealthHandler

	// Infrastructure
	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler

	// Behaviour
	Mode        string // gin mode: debug | release | test
	Logging     *middleware.LoggingConfig
	MaxBodySize int64
	RateLimiter middleware.RateLimiter
	RateLimit   middleware.RateLimitConfig
	CORS        *middleware.CORSConfig
}

// NewRouter builds the route tree: global middleware, public probes, the
// metrics endpoint, and the versioned API group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}

	r := gin.New()

	// Order matters: the request ID must exist before logging and recovery
	// reference it, and recovery must wrap everything that can panic.
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(logger, logCfg))
	r.Use(middleware.Recovery(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.Analysis != nil {
		api.POST("/analyses", cfg.Analysis.Analyze)
		api.POST("/analyses/batch", cfg.Analysis.AnalyzeBatch)
		api.POST("/analyses/compare", cfg.Analysis.Compare)
		api.POST("/analyses/export", cfg.Analysis.Export)
		api.GET("/thresholds", cfg.Analysis.Thresholds)
	}

	r.NoRoute(func(c *gin.Context) {
		resp := types.NewErrorResponse(errors.ErrCodeNotFound.String(), "route not found")
		resp.RequestID = middleware.GetRequestID(c)
		c.JSON(http.StatusNotFound, resp)
	})

	return r
}
