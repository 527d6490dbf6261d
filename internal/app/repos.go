package app

import (
	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Admin        repos.AdminRepo
	MigrationRun repos.MigrationRunRepo
	ConfigDoc    repos.ConfigDocRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Admin:        repos.NewAdminRepo(db, log),
		MigrationRun: repos.NewMigrationRunRepo(db, log),
		ConfigDoc:    repos.NewConfigDocRepo(db, log),
	}
}
