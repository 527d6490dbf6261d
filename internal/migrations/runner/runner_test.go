package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos"
	"github.com/lumenapp/admin-backend/internal/data/repos/testutil"
	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/migrations/registry"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
)

type fixture struct {
	tx     *gorm.DB
	runs   repos.MigrationRunRepo
	users  repos.UserRepo
	runner *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	runRepo := repos.NewMigrationRunRepo(tx, log)
	userRepo := repos.NewUserRepo(tx, log)
	reg, err := registry.NewCatalog(userRepo, registry.DefaultCatalogConfig())
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	return &fixture{
		tx:     tx,
		runs:   runRepo,
		users:  userRepo,
		runner: New(tx, runRepo, userRepo, reg, nil, log),
	}
}

func (f *fixture) seedMixedCaseUsers(t *testing.T, n int) {
	t.Helper()
	users := make([]*types.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, &types.User{
			ID:          uuid.New(),
			Email:       fmt.Sprintf("  User%d-%s@Example.COM", i, uuid.NewString()[:8]),
			DisplayName: fmt.Sprintf("User %d", i),
		})
	}
	if err := f.tx.Create(&users).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}
}

func (f *fixture) createRun(t *testing.T, migrationID string, batchSize int, dryRun bool) *types.MigrationRun {
	t.Helper()
	now := time.Now().UTC()
	run := &types.MigrationRun{
		ID:          uuid.New(),
		MigrationID: migrationID,
		Status:      types.RunStatusPending,
		DryRun:      dryRun,
		BatchSize:   batchSize,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.runs.Create(dbctx.Context{Ctx: context.Background(), Tx: f.tx}, run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	return run
}

func (f *fixture) tickUntilTerminal(t *testing.T, runID uuid.UUID, maxTicks int) TickResult {
	t.Helper()
	var last TickResult
	for i := 0; i < maxTicks; i++ {
		res, err := f.runner.Tick(context.Background(), runID)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		last = res
		switch res.Status {
		case types.RunStatusCompleted, types.RunStatusFailed, types.RunStatusCancelled:
			return last
		}
	}
	t.Fatalf("run did not terminate within %d ticks (last status %s)", maxTicks, last.Status)
	return last
}

func TestTick_RunsToCompletion(t *testing.T) {
	f := newFixture(t)
	f.seedMixedCaseUsers(t, 5)
	run := f.createRun(t, "normalize-emails", 2, false)

	res := f.tickUntilTerminal(t, run.ID, 10)
	if res.Status != types.RunStatusCompleted {
		t.Fatalf("expected completed, got %s", res.Status)
	}

	dbc := dbctx.Context{Ctx: context.Background(), Tx: f.tx}
	final, err := f.runs.GetByID(dbc, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if final.FinishedAt == nil {
		t.Fatalf("expected finished_at on completion")
	}
	var result types.MigrationRunResult
	if err := json.Unmarshal(final.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.UsersProcessed != 5 {
		t.Fatalf("expected 5 processed, got %d", result.UsersProcessed)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}

	var emails []string
	if err := f.tx.Model(&types.User{}).Pluck("email", &emails).Error; err != nil {
		t.Fatalf("read emails: %v", err)
	}
	for _, email := range emails {
		if email != strings.ToLower(strings.TrimSpace(email)) {
			t.Fatalf("email not normalized: %q", email)
		}
	}
}

func TestTick_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seedMixedCaseUsers(t, 3)
	run := f.createRun(t, "normalize-emails", 2, true)

	res := f.tickUntilTerminal(t, run.ID, 10)
	if res.Status != types.RunStatusCompleted {
		t.Fatalf("expected completed, got %s", res.Status)
	}

	var emails []string
	if err := f.tx.Model(&types.User{}).Pluck("email", &emails).Error; err != nil {
		t.Fatalf("read emails: %v", err)
	}
	for _, email := range emails {
		if email == strings.ToLower(email) {
			t.Fatalf("dry run must not modify data, but %q is normalized", email)
		}
	}
}

func TestTick_CancelWinsAtTickBoundary(t *testing.T) {
	f := newFixture(t)
	f.seedMixedCaseUsers(t, 6)
	run := f.createRun(t, "normalize-emails", 2, false)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: f.tx}

	res, err := f.runner.Tick(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if res.Status != types.RunStatusRunning || res.Processed != 2 {
		t.Fatalf("unexpected first tick: %+v", res)
	}

	if _, err := f.runs.MarkCancelled(dbc, run.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	res, err = f.runner.Tick(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("post-cancel tick: %v", err)
	}
	if res.Status != types.RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", res.Status)
	}
	if res.Processed != 0 {
		t.Fatalf("cancelled tick must not process users")
	}
}

func TestTick_UnknownMigrationFailsRun(t *testing.T) {
	f := newFixture(t)
	run := f.createRun(t, "ghost-migration", 100, false)

	res, err := f.runner.Tick(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Status != types.RunStatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}

	dbc := dbctx.Context{Ctx: context.Background(), Tx: f.tx}
	final, err := f.runs.GetByID(dbc, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if final.Error == "" {
		t.Fatalf("expected an error message on the run")
	}
}

func TestTick_ResumesFromOperatorCursor(t *testing.T) {
	f := newFixture(t)
	f.seedMixedCaseUsers(t, 4)

	var seeded []types.User
	if err := f.tx.Order("id").Find(&seeded).Error; err != nil {
		t.Fatalf("read users: %v", err)
	}

	now := time.Now().UTC()
	run := &types.MigrationRun{
		ID:               uuid.New(),
		MigrationID:      "normalize-emails",
		Status:           types.RunStatusPending,
		BatchSize:        10,
		StartAfterUserID: seeded[1].ID.String(),
		StartedAt:        now,
		UpdatedAt:        now,
	}
	dbc := dbctx.Context{Ctx: context.Background(), Tx: f.tx}
	if _, err := f.runs.Create(dbc, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	res, err := f.runner.Tick(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Processed != 2 {
		t.Fatalf("expected 2 users after the cursor, got %d", res.Processed)
	}
}
