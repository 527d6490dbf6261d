package app

import (
	"time"

	"github.com/lumenapp/admin-backend/internal/migrations/registry"
	"github.com/lumenapp/admin-backend/internal/platform/envutil"
)

type Config struct {
	Port           string
	JWTSecretKey   string
	AccessTokenTTL time.Duration

	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	TaskQueue     string
	OverridesPath string

	Catalog registry.CatalogConfig
}

func LoadConfig() Config {
	catalog := registry.DefaultCatalogConfig()
	catalog.TargetEmbeddingsVersion = envutil.Int("TARGET_EMBEDDINGS_VERSION", catalog.TargetEmbeddingsVersion)
	catalog.InsightRetention = envutil.Duration("INSIGHT_RETENTION", catalog.InsightRetention)

	return Config{
		Port:           envutil.String("PORT", "8080"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL: time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 43200)) * time.Second,

		BootstrapAdminEmail:    envutil.String("ADMIN_EMAIL", ""),
		BootstrapAdminPassword: envutil.String("ADMIN_PASSWORD", ""),

		TaskQueue:     envutil.String("TEMPORAL_TASK_QUEUE", "migrations"),
		OverridesPath: envutil.String("MIGRATION_OVERRIDES_PATH", ""),

		Catalog: catalog,
	}
}
