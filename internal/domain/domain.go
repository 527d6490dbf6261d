package domain

import (
	"github.com/lumenapp/admin-backend/internal/domain/admin"
	"github.com/lumenapp/admin-backend/internal/domain/config"
	"github.com/lumenapp/admin-backend/internal/domain/migration"
	"github.com/lumenapp/admin-backend/internal/domain/user"
)

type User = user.User
type CircleMembership = user.CircleMembership
type Insight = user.Insight

type Admin = admin.Admin

type MigrationRun = migration.MigrationRun
type MigrationOptions = migration.Options
type MigrationRunResult = migration.RunResult
type MigrationRunError = migration.RunError
type MigrationStatus = migration.Status

type ConfigDoc = config.ConfigDoc
type PricingConfig = config.PricingConfig
type AIProviderConfig = config.AIProviderConfig
type InsightsFeatureConfig = config.InsightsFeatureConfig

const (
	RunStatusPending   = migration.StatusPending
	RunStatusRunning   = migration.StatusRunning
	RunStatusCompleted = migration.StatusCompleted
	RunStatusFailed    = migration.StatusFailed
	RunStatusCancelled = migration.StatusCancelled
)
