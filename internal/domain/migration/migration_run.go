package migration

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// IsTerminal reports whether a run in this status can never change again.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

type MigrationRun struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	// The partial unique index is the real one-active-run guard: terminal
	// transitions always set finished_at, so at most one row per migration can
	// have finished_at IS NULL. The locked pre-check in the repo only exists to
	// return a friendly conflict before hitting the index.
	MigrationID      string         `gorm:"column:migration_id;not null;index:idx_migration_run_history,priority:1;index:idx_migration_run_active,priority:1;uniqueIndex:idx_migration_run_one_active,where:finished_at IS NULL" json:"migration_id"`
	Status           string         `gorm:"column:status;not null;index:idx_migration_run_active,priority:2" json:"status"`
	DryRun           bool           `gorm:"column:dry_run;not null;default:false" json:"dry_run"`
	BatchSize        int            `gorm:"column:batch_size;not null" json:"batch_size"`
	StartAfterUserID string         `gorm:"column:start_after_user_id" json:"start_after_user_id,omitempty"`
	TriggeredBy      uuid.UUID      `gorm:"type:uuid;column:triggered_by" json:"triggered_by"`
	Result           datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	Error            string         `gorm:"column:error" json:"error,omitempty"`
	StartedAt        time.Time      `gorm:"column:started_at;not null;index:idx_migration_run_history,priority:2,sort:desc" json:"started_at"`
	FinishedAt       *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (MigrationRun) TableName() string { return "migration_run" }

// Options are the operator-supplied knobs for one run. BatchSize is a
// pointer so an omitted value (nil, use the default) is distinguishable from
// an explicit zero, which is invalid.
type Options struct {
	DryRun           bool   `json:"dryRun"`
	BatchSize        *int   `json:"batchSize,omitempty"`
	StartAfterUserID string `json:"startAfterUserId,omitempty"`
}

type RunError struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

// RunResult is the incrementally merged progress payload stored in
// migration_run.result. Field names are the console wire contract.
type RunResult struct {
	UsersProcessed      int        `json:"usersProcessed"`
	Errors              []RunError `json:"errors,omitempty"`
	LastProcessedUserID string     `json:"lastProcessedUserId,omitempty"`
}

// Status is the derived read model; never persisted.
type Status struct {
	TotalUsers      int64 `json:"totalUsers"`
	UsersProcessed  int64 `json:"usersProcessed"`
	UsersRemaining  int64 `json:"usersRemaining"`
	PercentComplete int   `json:"percentComplete"`
}
