package app

import (
	"github.com/gin-gonic/gin"

	adminhttp "github.com/lumenapp/admin-backend/internal/http"
	"github.com/lumenapp/admin-backend/internal/observability"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, metrics *observability.Metrics, handlerset Handlers, mw Middleware) *gin.Engine {
	log.Info("Wiring router...")
	return adminhttp.NewRouter(adminhttp.RouterConfig{
		Log:     log,
		Metrics: metrics,

		AuthMiddleware: mw.Auth,

		HealthHandler:    handlerset.Health,
		AuthHandler:      handlerset.Auth,
		MigrationHandler: handlerset.Migration,
		ConfigHandler:    handlerset.Config,
		EventsHandler:    handlerset.Events,
	})
}
