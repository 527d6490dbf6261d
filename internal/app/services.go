package app

import (
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	redisclient "github.com/lumenapp/admin-backend/internal/clients/redis"
	"github.com/lumenapp/admin-backend/internal/migrations/registry"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
	"github.com/lumenapp/admin-backend/internal/services"
	"github.com/lumenapp/admin-backend/internal/sse"
)

type Services struct {
	Auth      services.AuthService
	Migration services.MigrationService
	Config    services.ConfigService
	Notifier  services.RunNotifier
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	reg *registry.Registry,
	hub *sse.Hub,
	bus redisclient.RunBus,
	tc temporalsdkclient.Client,
) Services {
	log.Info("Wiring services...")

	notifier := services.NewRunNotifier(hub, bus, log)
	return Services{
		Auth:      services.NewAuthService(db, log, reposet.Admin, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Migration: services.NewMigrationService(db, log, reg, reposet.MigrationRun, notifier, tc, cfg.TaskQueue),
		Config:    services.NewConfigService(db, log, reposet.ConfigDoc, notifier),
		Notifier:  notifier,
	}
}
