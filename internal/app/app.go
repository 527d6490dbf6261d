package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	redisclient "github.com/lumenapp/admin-backend/internal/clients/redis"
	"github.com/lumenapp/admin-backend/internal/db"
	"github.com/lumenapp/admin-backend/internal/migrations/registry"
	"github.com/lumenapp/admin-backend/internal/observability"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/envutil"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
	"github.com/lumenapp/admin-backend/internal/sse"
)

// App wires the admin console API: postgres, the migration catalog, redis
// event fan-out, the Temporal client and the HTTP surface.
type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Router   *gin.Engine
	Registry *registry.Registry
	Repos    Repos
	Services Services
	Hub      *sse.Hub
	Bus      redisclient.RunBus
	Temporal temporalsdkclient.Client
	Metrics  *observability.Metrics

	cancel context.CancelFunc

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "admin-backend",
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),
	})
	metrics := observability.Init(log)

	pg, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	reg, err := registry.NewCatalog(reposet.User, cfg.Catalog)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("build migration catalog: %w", err)
	}
	if cfg.OverridesPath != "" {
		overrides, err := registry.LoadOverrides(cfg.OverridesPath)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("load migration overrides: %w", err)
		}
		registry.ApplyOverrides(reg, overrides, log)
	}

	hub := sse.NewHub(log)

	// Redis is optional in single-instance deployments; without it events stay
	// local to this process.
	bus, err := redisclient.NewRunBus(log)
	if err != nil {
		log.Warn("redis run bus unavailable; events stay in-process", "error", err)
		bus = nil
	}

	// Nil client means TEMPORAL_ADDRESS is unset; triggering runs returns 502
	// until it is configured.
	tc, err := temporalClient(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	serviceset := wireServices(theDB, log, cfg, reposet, reg, hub, bus, tc)
	handlerset := wireHandlers(theDB, log, serviceset, hub)
	mw := wireMiddleware(log, serviceset)
	router := wireRouter(log, metrics, handlerset, mw)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Router:       router,
		Registry:     reg,
		Repos:        reposet,
		Services:     serviceset,
		Hub:          hub,
		Bus:          bus,
		Temporal:     tc,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background pieces: the redis forwarder, metrics
// collectors and the bootstrap admin account.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Bus != nil {
		if err := a.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			a.Log.Warn("redis forwarder failed to start", "error", err)
		}
	}

	if a.Metrics != nil {
		a.Metrics.StartRunDepthCollector(ctx, a.Log, a.DB)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartRedisCollector(ctx, a.Log, os.Getenv("REDIS_ADDR"))
	}

	if a.Cfg.BootstrapAdminEmail != "" {
		dbc := dbctx.Context{Ctx: ctx, Tx: a.DB}
		if err := a.Services.Auth.EnsureBootstrapAdmin(dbc, a.Cfg.BootstrapAdminEmail, a.Cfg.BootstrapAdminPassword); err != nil {
			a.Log.Warn("bootstrap admin setup failed", "error", err)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
