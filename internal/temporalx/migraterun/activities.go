package migraterun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/lumenapp/admin-backend/internal/migrations/runner"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type Activities struct {
	Log    *logger.Logger
	Runner *runner.Runner
}

// Tick executes one batch for the run and returns its status. Temporal
// heartbeats run in the background so a slow batch does not trip the
// heartbeat timeout.
func (a *Activities) Tick(ctx context.Context, runID string) (runner.TickResult, error) {
	var res runner.TickResult
	if a == nil || a.Runner == nil {
		return res, fmt.Errorf("migraterun: activity not configured")
	}

	parsed, err := uuid.Parse(strings.TrimSpace(runID))
	if err != nil || parsed == uuid.Nil {
		return res, fmt.Errorf("migraterun: invalid run_id")
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	return a.Runner.Tick(ctx, parsed)
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
