package app

import (
	"gorm.io/gorm"

	httpH "github.com/lumenapp/admin-backend/internal/http/handlers"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
	"github.com/lumenapp/admin-backend/internal/sse"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Auth      *httpH.AuthHandler
	Migration *httpH.MigrationHandler
	Config    *httpH.ConfigHandler
	Events    *httpH.EventsHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, serviceset Services, hub *sse.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Auth:      httpH.NewAuthHandler(serviceset.Auth),
		Migration: httpH.NewMigrationHandler(serviceset.Migration),
		Config:    httpH.NewConfigHandler(serviceset.Config),
		Events:    httpH.NewEventsHandler(hub),
	}
}
