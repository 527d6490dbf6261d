package migraterun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/lumenapp/admin-backend/internal/migrations/runner"
)

// Workflow drives one migration run. The workflow ID is the run ID; each
// activity tick processes one batch and reports the run status back. The loop
// ends when the run reaches a terminal status in the database, so a cancel
// written by the API is honored at the next tick boundary.
func Workflow(ctx workflow.Context) error {
	runID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if runID == "" {
		return fmt.Errorf("migraterun: missing run_id")
	}

	const (
		tickInterval         = 1 * time.Second
		continueTickLimit    = 2000
		continueHistoryLimit = 15000
	)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 1 * time.Hour,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy:         nil, // batch failures are recorded on the run row
	})

	tickCount := 0
	for {
		tickCount++
		var out runner.TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, runID).Get(ctx, &out); err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(out.Status)) {
		case "completed", "cancelled":
			return nil
		case "failed":
			return fmt.Errorf("migration run failed (run_id=%s)", runID)
		default:
			if err := workflow.Sleep(ctx, tickInterval); err != nil {
				return err
			}
			if shouldContinueAsNew(ctx, tickCount, continueTickLimit, continueHistoryLimit) {
				return workflow.NewContinueAsNewError(ctx, Workflow)
			}
		}
	}
}

func shouldContinueAsNew(ctx workflow.Context, ticks, maxTicks, maxHistory int) bool {
	if maxTicks > 0 && ticks >= maxTicks {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil || maxHistory <= 0 {
		return false
	}
	return info.GetCurrentHistoryLength() >= maxHistory
}
