package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos"
	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/migration"
	"github.com/lumenapp/admin-backend/internal/migrations/registry"
	"github.com/lumenapp/admin-backend/internal/observability"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/platform/ctxutil"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
	"github.com/lumenapp/admin-backend/internal/temporalx/migraterun"
)

// MigrationSummary is the list-view read model: the static definition plus
// the run activity the console renders next to it.
type MigrationSummary struct {
	registry.Definition
	ActiveRun *types.MigrationRun `json:"activeRun,omitempty"`
	LastRun   *types.MigrationRun `json:"lastRun,omitempty"`
	RunCount  int64               `json:"runCount"`
}

// MigrationDetail adds the computed progress snapshot.
type MigrationDetail struct {
	MigrationSummary
	Status *types.MigrationStatus `json:"status,omitempty"`
}

// MigrationList is the catalog response: the per-migration summaries plus the
// fleet-wide counters the console header shows.
type MigrationList struct {
	Migrations       []MigrationSummary `json:"migrations"`
	ActiveMigrations int                `json:"activeMigrations"`
	TotalRuns        int64              `json:"totalRuns"`
}

type MigrationService interface {
	List(dbc dbctx.Context) (*MigrationList, error)
	Get(dbc dbctx.Context, migrationID string) (*MigrationDetail, error)
	Status(dbc dbctx.Context, migrationID string) (*types.MigrationStatus, error)
	ListRuns(dbc dbctx.Context, migrationID string, limit int) ([]*types.MigrationRun, error)
	Trigger(dbc dbctx.Context, migrationID string, opts types.MigrationOptions) (*types.MigrationRun, error)
	Cancel(dbc dbctx.Context, migrationID string, runID uuid.UUID) (*types.MigrationRun, error)
}

type migrationService struct {
	db       *gorm.DB
	log      *logger.Logger
	registry *registry.Registry
	runs     repos.MigrationRunRepo
	notify   RunNotifier

	temporal  temporalsdkclient.Client
	taskQueue string
}

func NewMigrationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	reg *registry.Registry,
	runs repos.MigrationRunRepo,
	notify RunNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) MigrationService {
	return &migrationService{
		db:        db,
		log:       baseLog.With("service", "MigrationService"),
		registry:  reg,
		runs:      runs,
		notify:    notify,
		temporal:  tc,
		taskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *migrationService) List(dbc dbctx.Context) (*MigrationList, error) {
	defs := s.registry.List()

	active, err := s.runs.ListActive(dbc)
	if err != nil {
		return nil, err
	}
	activeByID := make(map[string]*types.MigrationRun, len(active))
	for _, run := range active {
		if _, seen := activeByID[run.MigrationID]; !seen {
			activeByID[run.MigrationID] = run
		}
	}

	summaries := make([]MigrationSummary, 0, len(defs))
	for _, def := range defs {
		summary := MigrationSummary{Definition: def, ActiveRun: activeByID[def.ID]}

		history, err := s.runs.ListByMigration(dbc, def.ID, 1)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			summary.LastRun = history[0]
		}
		count, err := s.runs.CountByMigration(dbc, def.ID)
		if err != nil {
			return nil, err
		}
		summary.RunCount = count
		summaries = append(summaries, summary)
	}

	totalRuns, err := s.runs.CountAll(dbc)
	if err != nil {
		return nil, err
	}
	return &MigrationList{
		Migrations:       summaries,
		ActiveMigrations: len(activeByID),
		TotalRuns:        totalRuns,
	}, nil
}

func (s *migrationService) Get(dbc dbctx.Context, migrationID string) (*MigrationDetail, error) {
	m, err := s.registry.Get(migrationID)
	if err != nil {
		return nil, err
	}
	def := m.Definition()

	detail := &MigrationDetail{MigrationSummary: MigrationSummary{Definition: def}}

	if detail.ActiveRun, err = s.runs.ActiveRun(dbc, def.ID); err != nil {
		return nil, err
	}
	history, err := s.runs.ListByMigration(dbc, def.ID, 1)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		detail.LastRun = history[0]
	}
	if detail.RunCount, err = s.runs.CountByMigration(dbc, def.ID); err != nil {
		return nil, err
	}

	status, err := s.computeStatus(dbc, m)
	if err != nil {
		s.log.Warn("status computation failed", "migration_id", def.ID, "error", err)
	} else {
		detail.Status = status
	}
	return detail, nil
}

func (s *migrationService) Status(dbc dbctx.Context, migrationID string) (*types.MigrationStatus, error) {
	m, err := s.registry.Get(migrationID)
	if err != nil {
		return nil, err
	}
	return s.computeStatus(dbc, m)
}

// computeStatus derives progress from live data, never from run bookkeeping.
// Percent rounds half up; an empty population counts as fully migrated.
func (s *migrationService) computeStatus(dbc dbctx.Context, m registry.Migration) (*types.MigrationStatus, error) {
	total, done, err := m.Progress(dbc)
	if err != nil {
		return nil, err
	}
	if done > total {
		done = total
	}
	if done < 0 {
		done = 0
	}
	st := &types.MigrationStatus{
		TotalUsers:     total,
		UsersProcessed: done,
		UsersRemaining: total - done,
	}
	if total == 0 {
		st.PercentComplete = 100
		return st, nil
	}
	st.PercentComplete = int((done*100 + total/2) / total)
	if st.PercentComplete > 100 {
		st.PercentComplete = 100
	}
	return st, nil
}

func (s *migrationService) ListRuns(dbc dbctx.Context, migrationID string, limit int) ([]*types.MigrationRun, error) {
	if _, err := s.registry.Get(migrationID); err != nil {
		return nil, err
	}
	return s.runs.ListByMigration(dbc, migrationID, limit)
}

func (s *migrationService) Trigger(dbc dbctx.Context, migrationID string, opts types.MigrationOptions) (*types.MigrationRun, error) {
	m, err := s.registry.Get(migrationID)
	if err != nil {
		return nil, err
	}
	def := m.Definition()

	// An omitted batchSize falls back to the migration's default; an explicit
	// non-positive value is an operator mistake and gets rejected.
	batchSize := def.DefaultBatchSize
	if opts.BatchSize != nil {
		if *opts.BatchSize <= 0 {
			return nil, apierr.Validation(fmt.Errorf("batchSize must be positive"))
		}
		batchSize = *opts.BatchSize
	}
	if opts.DryRun && !def.SupportsDryRun {
		return nil, apierr.UnsupportedOption(fmt.Errorf("migration %s does not support dryRun", def.ID))
	}
	if opts.StartAfterUserID != "" {
		if !def.SupportsResume {
			return nil, apierr.UnsupportedOption(fmt.Errorf("migration %s does not support startAfterUserId", def.ID))
		}
		if _, err := uuid.Parse(opts.StartAfterUserID); err != nil {
			return nil, apierr.Validation(fmt.Errorf("startAfterUserId is not a valid user id"))
		}
	}
	if s.temporal == nil {
		return nil, apierr.Upstream(fmt.Errorf("temporal not configured (TEMPORAL_ADDRESS)"))
	}

	var triggeredBy uuid.UUID
	if rd := ctxutil.GetRequestData(dbc.Ctx); rd != nil {
		triggeredBy = rd.AdminID
	}

	now := time.Now().UTC()
	run := &types.MigrationRun{
		ID:               uuid.New(),
		MigrationID:      def.ID,
		Status:           types.RunStatusPending,
		DryRun:           opts.DryRun,
		BatchSize:        batchSize,
		StartAfterUserID: opts.StartAfterUserID,
		TriggeredBy:      triggeredBy,
		StartedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.runs.Create(dbc, run); err != nil {
		return nil, err
	}
	s.log.Info("migration run triggered",
		"run_id", run.ID, "migration_id", def.ID, "dry_run", run.DryRun,
		"batch_size", run.BatchSize, "admin_id", triggeredBy)
	observability.Current().IncRunTriggered(def.ID, run.DryRun)

	if err := s.dispatch(dbc.Ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// dispatch starts the Temporal workflow for a freshly created run. A dispatch
// failure marks the run failed so it never lingers as a phantom active run.
func (s *migrationService) dispatch(ctx context.Context, run *types.MigrationRun) error {
	ctx = ctxutil.Default(ctx)

	tq := s.taskQueue
	if tq == "" {
		tq = "migrations"
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    run.ID.String(),
		TaskQueue:             tq,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
		},
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, opts, migraterun.WorkflowName)
	if err == nil {
		return nil
	}
	if _, ok := err.(*serviceerror.WorkflowExecutionAlreadyStarted); ok {
		return nil
	}

	msg := fmt.Sprintf("dispatch: %v", err)
	if mErr := s.runs.MarkFailed(dbctx.Context{Ctx: ctx, Tx: s.db}, run.ID, msg); mErr != nil {
		s.log.Error("failed to mark undispatched run failed", "run_id", run.ID, "error", mErr)
	}
	run.Status = types.RunStatusFailed
	run.Error = msg
	if s.notify != nil {
		s.notify.RunFailed(run, msg)
	}
	return apierr.Upstream(fmt.Errorf("start migration workflow: %w", err))
}

func (s *migrationService) Cancel(dbc dbctx.Context, migrationID string, runID uuid.UUID) (*types.MigrationRun, error) {
	if _, err := s.registry.Get(migrationID); err != nil {
		return nil, err
	}
	run, err := s.runs.GetByID(dbc, runID)
	if err != nil {
		return nil, err
	}
	if run == nil || run.MigrationID != migrationID {
		return nil, apierr.NotFound(fmt.Errorf("run %s not found for migration %s", runID, migrationID))
	}
	if migration.IsTerminal(run.Status) {
		return nil, apierr.InvalidState(fmt.Errorf("run %s is already %s", runID, run.Status))
	}

	updated, err := s.runs.MarkCancelled(dbc, runID)
	if err != nil {
		return nil, err
	}

	// Best-effort: the workflow also stops on its own at the next tick once it
	// reads the cancelled status.
	if s.temporal != nil {
		_ = s.temporal.CancelWorkflow(ctxutil.Default(dbc.Ctx), runID.String(), "")
	}

	s.log.Info("migration run cancelled", "run_id", runID, "migration_id", migrationID)
	observability.Current().IncRunFinished(migrationID, updated.Status)
	if s.notify != nil {
		s.notify.RunCancelled(updated)
	}
	return updated, nil
}
