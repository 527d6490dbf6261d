package migrations

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/migration"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type MigrationRunRepo interface {
	// Create inserts a new run after verifying no pending/running run exists
	// for the same migration. The pre-check gives a friendly conflict error;
	// the partial unique index idx_migration_run_one_active is what actually
	// closes the duplicate-trigger race when two transactions both see zero
	// active rows.
	Create(dbc dbctx.Context, run *types.MigrationRun) (*types.MigrationRun, error)
	GetByID(dbc dbctx.Context, runID uuid.UUID) (*types.MigrationRun, error)
	ListByMigration(dbc dbctx.Context, migrationID string, limit int) ([]*types.MigrationRun, error)
	ListActive(dbc dbctx.Context) ([]*types.MigrationRun, error)
	ActiveRun(dbc dbctx.Context, migrationID string) (*types.MigrationRun, error)
	CountAll(dbc dbctx.Context) (int64, error)
	CountByMigration(dbc dbctx.Context, migrationID string) (int64, error)
	MergeResult(dbc dbctx.Context, runID uuid.UUID, partial types.MigrationRunResult) error
	MarkCancelled(dbc dbctx.Context, runID uuid.UUID) (*types.MigrationRun, error)
	MarkCompleted(dbc dbctx.Context, runID uuid.UUID) error
	MarkFailed(dbc dbctx.Context, runID uuid.UUID, runErr string) error
}

type migrationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMigrationRunRepo(db *gorm.DB, baseLog *logger.Logger) MigrationRunRepo {
	return &migrationRunRepo{
		db:  db,
		log: baseLog.With("repo", "MigrationRunRepo"),
	}
}

var activeStatuses = []string{types.RunStatusPending, types.RunStatusRunning}

func (r *migrationRunRepo) Create(dbc dbctx.Context, run *types.MigrationRun) (*types.MigrationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, fmt.Errorf("nil run")
	}
	if run.MigrationID == "" {
		return nil, fmt.Errorf("missing migration_id")
	}
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var active []*types.MigrationRun
		q := txx.Where("migration_id = ? AND status IN ?", run.MigrationID, activeStatuses)
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Find(&active).Error; err != nil {
			return err
		}
		if len(active) > 0 {
			return apierr.Conflict(fmt.Errorf("migration %s already has an active run", run.MigrationID))
		}
		if err := txx.Create(run).Error; err != nil {
			// Concurrent trigger that won the insert race; the one-active
			// partial unique index rejects the loser.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierr.Conflict(fmt.Errorf("migration %s already has an active run", run.MigrationID))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *migrationRunRepo) GetByID(dbc dbctx.Context, runID uuid.UUID) (*types.MigrationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == uuid.Nil {
		return nil, nil
	}
	var run types.MigrationRun
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", runID).
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *migrationRunRepo) ListByMigration(dbc dbctx.Context, migrationID string, limit int) ([]*types.MigrationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if migrationID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*types.MigrationRun
	err := transaction.WithContext(dbc.Ctx).
		Where("migration_id = ?", migrationID).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *migrationRunRepo) ListActive(dbc dbctx.Context) ([]*types.MigrationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MigrationRun
	err := transaction.WithContext(dbc.Ctx).
		Where("status IN ?", activeStatuses).
		Order("started_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *migrationRunRepo) ActiveRun(dbc dbctx.Context, migrationID string) (*types.MigrationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if migrationID == "" {
		return nil, nil
	}
	var run types.MigrationRun
	err := transaction.WithContext(dbc.Ctx).
		Where("migration_id = ? AND status IN ?", migrationID, activeStatuses).
		Order("started_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *migrationRunRepo) CountAll(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.MigrationRun{}).
		Count(&count).Error
	return count, err
}

func (r *migrationRunRepo) CountByMigration(dbc dbctx.Context, migrationID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.MigrationRun{}).
		Where("migration_id = ?", migrationID).
		Count(&count).Error
	return count, err
}

// MergeResult folds a partial result into the stored JSON: processed counts
// add up, errors append, the cursor moves forward. Writers race last-write-wins
// on unrelated fields, which matches the single-worker execution model.
func (r *migrationRunRepo) MergeResult(dbc dbctx.Context, runID uuid.UUID, partial types.MigrationRunResult) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == uuid.Nil {
		return fmt.Errorf("missing run id")
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var run types.MigrationRun
		err := txx.Where("id = ?", runID).Limit(1).Find(&run).Error
		if err != nil {
			return err
		}
		if run.ID == uuid.Nil {
			return apierr.NotFound(fmt.Errorf("run %s not found", runID))
		}

		merged := decodeResult(run.Result)
		merged.UsersProcessed += partial.UsersProcessed
		if len(partial.Errors) > 0 {
			merged.Errors = append(merged.Errors, partial.Errors...)
		}
		if partial.LastProcessedUserID != "" {
			merged.LastProcessedUserID = partial.LastProcessedUserID
		}
		raw, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return txx.Model(&types.MigrationRun{}).
			Where("id = ?", runID).
			Updates(map[string]interface{}{
				"result":     raw,
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (r *migrationRunRepo) MarkCancelled(dbc dbctx.Context, runID uuid.UUID) (*types.MigrationRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == uuid.Nil {
		return nil, apierr.NotFound(fmt.Errorf("missing run id"))
	}
	var updated *types.MigrationRun
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var run types.MigrationRun
		q := txx.Where("id = ?", runID)
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Limit(1).Find(&run).Error; err != nil {
			return err
		}
		if run.ID == uuid.Nil {
			return apierr.NotFound(fmt.Errorf("run %s not found", runID))
		}
		if migration.IsTerminal(run.Status) {
			return apierr.InvalidState(fmt.Errorf("run %s is already %s", runID, run.Status))
		}

		now := time.Now().UTC()
		if err := txx.Model(&types.MigrationRun{}).
			Where("id = ?", runID).
			Updates(map[string]interface{}{
				"status":      types.RunStatusCancelled,
				"finished_at": now,
				"updated_at":  now,
			}).Error; err != nil {
			return err
		}
		run.Status = types.RunStatusCancelled
		run.FinishedAt = &now
		run.UpdatedAt = now
		updated = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *migrationRunRepo) MarkCompleted(dbc dbctx.Context, runID uuid.UUID) error {
	return r.finish(dbc, runID, types.RunStatusCompleted, "")
}

func (r *migrationRunRepo) MarkFailed(dbc dbctx.Context, runID uuid.UUID, runErr string) error {
	return r.finish(dbc, runID, types.RunStatusFailed, runErr)
}

// finish transitions a non-terminal run into a terminal status. Terminal runs
// are immutable: a second transition is a no-op.
func (r *migrationRunRepo) finish(dbc dbctx.Context, runID uuid.UUID, status string, runErr string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == uuid.Nil {
		return fmt.Errorf("missing run id")
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": now,
		"updated_at":  now,
	}
	if runErr != "" {
		updates["error"] = runErr
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.MigrationRun{}).
		Where("id = ? AND status NOT IN ?", runID, []string{
			types.RunStatusCompleted, types.RunStatusFailed, types.RunStatusCancelled,
		}).
		Updates(updates).Error
}

func decodeResult(raw []byte) types.MigrationRunResult {
	var out types.MigrationRunResult
	if len(raw) == 0 || string(raw) == "null" {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.MigrationRunResult{}
	}
	return out
}

// IsNotFound reports whether err is the repo's not-found error.
func IsNotFound(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	return apierr.IsCode(err, apierr.CodeNotFound)
}
