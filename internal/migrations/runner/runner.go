package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos"
	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/migration"
	"github.com/lumenapp/admin-backend/internal/migrations/registry"
	"github.com/lumenapp/admin-backend/internal/observability"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

// Notifier receives run lifecycle events. Implementations must not block.
type Notifier interface {
	RunStarted(run *types.MigrationRun)
	RunProgress(run *types.MigrationRun, result types.MigrationRunResult)
	RunCompleted(run *types.MigrationRun)
	RunFailed(run *types.MigrationRun, message string)
	RunCancelled(run *types.MigrationRun)
}

// TickResult tells the driving workflow what happened during one batch.
type TickResult struct {
	RunID     string `json:"runId"`
	Status    string `json:"status"`
	Processed int    `json:"processed"`
}

// applyConcurrency bounds per-user work inside one batch. Cursor order is
// preserved because the cursor only advances after the whole batch settles.
const applyConcurrency = 4

// Runner executes one batch of a migration run per Tick call. The caller
// (a Temporal workflow in production) loops Tick until the returned status
// is terminal.
type Runner struct {
	log      *logger.Logger
	db       *gorm.DB
	runs     repos.MigrationRunRepo
	users    repos.UserRepo
	registry *registry.Registry
	notify   Notifier
}

func New(db *gorm.DB, runs repos.MigrationRunRepo, users repos.UserRepo, reg *registry.Registry, notify Notifier, baseLog *logger.Logger) *Runner {
	return &Runner{
		log:      baseLog.With("component", "MigrationRunner"),
		db:       db,
		runs:     runs,
		users:    users,
		registry: reg,
		notify:   notify,
	}
}

// Tick processes at most one batch for the given run. Terminal and cancelled
// runs are reported without further work so a concurrent cancel always wins.
func (r *Runner) Tick(ctx context.Context, runID uuid.UUID) (TickResult, error) {
	res := TickResult{RunID: runID.String()}
	if r == nil || r.db == nil || r.runs == nil || r.users == nil || r.registry == nil {
		return res, fmt.Errorf("runner not configured")
	}

	dbc := dbctx.Context{Ctx: ctx, Tx: r.db}
	run, err := r.runs.GetByID(dbc, runID)
	if err != nil {
		return res, err
	}
	if run == nil {
		return res, fmt.Errorf("run %s not found", runID)
	}
	res.Status = run.Status
	if migration.IsTerminal(run.Status) {
		r.emitTerminal(run)
		return res, nil
	}

	m, err := r.registry.Get(run.MigrationID)
	if err != nil {
		r.failRun(dbc, run, fmt.Sprintf("migration %s is not in the catalog", run.MigrationID))
		res.Status = types.RunStatusFailed
		return res, nil
	}

	if run.Status == types.RunStatusPending {
		if err := r.markRunning(dbc, run); err != nil {
			return res, err
		}
		if run.Status == types.RunStatusCancelled {
			res.Status = run.Status
			r.emitTerminal(run)
			return res, nil
		}
		if r.notify != nil {
			r.notify.RunStarted(run)
		}
	}
	res.Status = run.Status

	cursor := r.cursor(run)
	batch, err := r.users.ListBatchAfter(dbc, cursor, run.BatchSize)
	if err != nil {
		return res, err
	}
	if len(batch) == 0 {
		if err := r.runs.MarkCompleted(dbc, run.ID); err != nil {
			return res, err
		}
		run.Status = types.RunStatusCompleted
		res.Status = types.RunStatusCompleted
		r.log.Info("migration run completed", "run_id", run.ID, "migration_id", run.MigrationID, "dry_run", run.DryRun)
		observability.Current().IncRunFinished(run.MigrationID, run.Status)
		if r.notify != nil {
			r.notify.RunCompleted(run)
		}
		return res, nil
	}

	batchStart := time.Now()
	partial := r.applyBatch(ctx, m, run, batch)
	res.Processed = partial.UsersProcessed
	observability.Current().ObserveBatch(run.MigrationID, time.Since(batchStart), partial.UsersProcessed)

	if err := r.runs.MergeResult(dbc, run.ID, partial); err != nil {
		return res, err
	}

	// Re-read so a cancel that landed mid-batch stops the loop now instead of
	// one tick later.
	updated, err := r.runs.GetByID(dbc, run.ID)
	if err != nil {
		return res, err
	}
	if updated != nil {
		run = updated
		res.Status = run.Status
		if migration.IsTerminal(run.Status) {
			r.emitTerminal(run)
			return res, nil
		}
	}

	if r.notify != nil {
		r.notify.RunProgress(run, decodeResult(run.Result))
	}
	return res, nil
}

// applyBatch runs the migration over one page of users with bounded
// concurrency. Per-user failures are collected into the partial result; only
// the batch as a whole reports an error count, never an aborted run.
func (r *Runner) applyBatch(ctx context.Context, m registry.Migration, run *types.MigrationRun, batch []*types.User) types.MigrationRunResult {
	var (
		mu     sync.Mutex
		errs   []types.MigrationRunError
		dryRun = run.DryRun
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(applyConcurrency)
	for _, u := range batch {
		u := u
		g.Go(func() error {
			dbc := dbctx.Context{Ctx: gctx, Tx: r.db}
			if err := m.Apply(dbc, u, dryRun); err != nil {
				r.log.Warn("migration apply failed for user",
					"run_id", run.ID, "migration_id", run.MigrationID, "user_id", u.ID, "error", err)
				mu.Lock()
				errs = append(errs, types.MigrationRunError{
					Message: err.Error(),
					UserID:  u.ID.String(),
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return types.MigrationRunResult{
		UsersProcessed:      len(batch),
		Errors:              errs,
		LastProcessedUserID: batch[len(batch)-1].ID.String(),
	}
}

// cursor picks the resume point: the merged result's cursor when present,
// otherwise the operator-supplied startAfterUserId.
func (r *Runner) cursor(run *types.MigrationRun) string {
	result := decodeResult(run.Result)
	if result.LastProcessedUserID != "" {
		return result.LastProcessedUserID
	}
	return run.StartAfterUserID
}

// markRunning flips pending to running unless a cancel already landed. The
// guard mirrors the status check in MarkCancelled so the two writers cannot
// both win.
func (r *Runner) markRunning(dbc dbctx.Context, run *types.MigrationRun) error {
	now := time.Now().UTC()
	res := r.db.WithContext(dbc.Ctx).
		Model(&types.MigrationRun{}).
		Where("id = ? AND status = ?", run.ID, types.RunStatusPending).
		Updates(map[string]interface{}{
			"status":     types.RunStatusRunning,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		reread, err := r.runs.GetByID(dbc, run.ID)
		if err != nil {
			return err
		}
		if reread != nil {
			*run = *reread
		}
		return nil
	}
	run.Status = types.RunStatusRunning
	run.UpdatedAt = now
	return nil
}

func (r *Runner) failRun(dbc dbctx.Context, run *types.MigrationRun, message string) {
	if err := r.runs.MarkFailed(dbc, run.ID, message); err != nil {
		r.log.Error("failed to mark run failed", "run_id", run.ID, "error", err)
		return
	}
	run.Status = types.RunStatusFailed
	run.Error = message
	r.log.Error("migration run failed", "run_id", run.ID, "migration_id", run.MigrationID, "error", message)
	observability.Current().IncRunFinished(run.MigrationID, run.Status)
	if r.notify != nil {
		r.notify.RunFailed(run, message)
	}
}

func (r *Runner) emitTerminal(run *types.MigrationRun) {
	if r.notify == nil || run == nil {
		return
	}
	switch run.Status {
	case types.RunStatusCompleted:
		r.notify.RunCompleted(run)
	case types.RunStatusFailed:
		r.notify.RunFailed(run, run.Error)
	case types.RunStatusCancelled:
		r.notify.RunCancelled(run)
	}
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
