package repos

import (
	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos/admins"
	"github.com/lumenapp/admin-backend/internal/data/repos/configs"
	"github.com/lumenapp/admin-backend/internal/data/repos/migrations"
	"github.com/lumenapp/admin-backend/internal/data/repos/users"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type UserRepo = users.UserRepo
type UserScope = users.Scope
type AdminRepo = admins.AdminRepo
type MigrationRunRepo = migrations.MigrationRunRepo
type ConfigDocRepo = configs.ConfigDocRepo

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return users.NewUserRepo(db, log)
}

func NewAdminRepo(db *gorm.DB, log *logger.Logger) AdminRepo {
	return admins.NewAdminRepo(db, log)
}

func NewMigrationRunRepo(db *gorm.DB, log *logger.Logger) MigrationRunRepo {
	return migrations.NewMigrationRunRepo(db, log)
}

func NewConfigDocRepo(db *gorm.DB, log *logger.Logger) ConfigDocRepo {
	return configs.NewConfigDocRepo(db, log)
}
