package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/lumenapp/admin-backend/internal/http/handlers"
	httpMW "github.com/lumenapp/admin-backend/internal/http/middleware"
	"github.com/lumenapp/admin-backend/internal/observability"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	AuthHandler      *httpH.AuthHandler
	MigrationHandler *httpH.MigrationHandler
	ConfigHandler    *httpH.ConfigHandler
	EventsHandler    *httpH.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("admin-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readiness", cfg.HealthHandler.Readiness)
	}

	// Prometheus exposition; responds 503 when metrics are disabled.
	if observability.Enabled() {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	admin := r.Group("/api/admin")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			admin.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := admin.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAdmin())
		}

		// Migrations
		if cfg.MigrationHandler != nil {
			protected.GET("/migrations", cfg.MigrationHandler.List)
			protected.GET("/migrations/:id", cfg.MigrationHandler.Get)
			protected.GET("/migrations/:id/status", cfg.MigrationHandler.Status)
			protected.GET("/migrations/:id/runs", cfg.MigrationHandler.ListRuns)
			protected.POST("/migrations/:id", cfg.MigrationHandler.Trigger)
			protected.DELETE("/migrations/:id/runs/:runId", cfg.MigrationHandler.CancelRun)
		}

		// Peripheral config documents
		if cfg.ConfigHandler != nil {
			protected.GET("/config/pricing", cfg.ConfigHandler.GetPricing)
			protected.PUT("/config/pricing", cfg.ConfigHandler.UpdatePricing)
			protected.GET("/config/ai-provider", cfg.ConfigHandler.GetAIProvider)
			protected.PUT("/config/ai-provider", cfg.ConfigHandler.UpdateAIProvider)
			protected.GET("/config/insights", cfg.ConfigHandler.GetInsightsFeatures)
			protected.PUT("/config/insights", cfg.ConfigHandler.UpdateInsightsFeatures)
		}

		// Run events (SSE)
		if cfg.EventsHandler != nil {
			protected.GET("/events", cfg.EventsHandler.Stream)
		}
	}

	return r
}
