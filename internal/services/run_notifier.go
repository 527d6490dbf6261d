package services

import (
	"context"

	redisclient "github.com/lumenapp/admin-backend/internal/clients/redis"
	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
	"github.com/lumenapp/admin-backend/internal/sse"
)

// RunNotifier pushes run lifecycle events to connected consoles. It satisfies
// the runner's Notifier interface.
type RunNotifier interface {
	RunStarted(run *types.MigrationRun)
	RunProgress(run *types.MigrationRun, result types.MigrationRunResult)
	RunCompleted(run *types.MigrationRun)
	RunFailed(run *types.MigrationRun, message string)
	RunCancelled(run *types.MigrationRun)
	ConfigChanged(key string, version int)
}

type runNotifier struct {
	log *logger.Logger
	hub *sse.Hub
	bus redisclient.RunBus
}

// NewRunNotifier fans events through the redis bus when one is configured so
// every API instance sees them; without a bus events stay process-local.
func NewRunNotifier(hub *sse.Hub, bus redisclient.RunBus, baseLog *logger.Logger) RunNotifier {
	return &runNotifier{
		log: baseLog.With("service", "RunNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *runNotifier) RunStarted(run *types.MigrationRun) {
	n.emitRun(sse.EventRunStarted, run, nil)
}

func (n *runNotifier) RunProgress(run *types.MigrationRun, result types.MigrationRunResult) {
	n.emitRun(sse.EventRunProgress, run, map[string]any{"result": result})
}

func (n *runNotifier) RunCompleted(run *types.MigrationRun) {
	n.emitRun(sse.EventRunCompleted, run, nil)
}

func (n *runNotifier) RunFailed(run *types.MigrationRun, message string) {
	n.emitRun(sse.EventRunFailed, run, map[string]any{"error": message})
}

func (n *runNotifier) RunCancelled(run *types.MigrationRun) {
	n.emitRun(sse.EventRunCancelled, run, nil)
}

func (n *runNotifier) ConfigChanged(key string, version int) {
	n.publish(sse.Message{
		Channel: sse.ChannelRuns,
		Event:   sse.EventConfigChange,
		Data:    map[string]any{"key": key, "version": version},
	})
}

func (n *runNotifier) emitRun(event sse.Event, run *types.MigrationRun, extra map[string]any) {
	if run == nil {
		return
	}
	data := map[string]any{
		"runId":       run.ID,
		"migrationId": run.MigrationID,
		"status":      run.Status,
		"dryRun":      run.DryRun,
	}
	for k, v := range extra {
		data[k] = v
	}
	n.publish(sse.Message{Channel: sse.ChannelRuns, Event: event, Data: data})
	n.publish(sse.Message{Channel: sse.ChannelForMigration(run.MigrationID), Event: event, Data: data})
}

func (n *runNotifier) publish(msg sse.Message) {
	if n.bus != nil {
		if err := n.bus.Publish(context.Background(), msg); err != nil {
			n.log.Warn("run event publish failed; broadcasting locally", "channel", msg.Channel, "event", msg.Event, "error", err)
			n.hub.Broadcast(msg)
		}
		return
	}
	n.hub.Broadcast(msg)
}
