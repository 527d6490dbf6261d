package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumenapp/admin-backend/internal/app"
	"github.com/lumenapp/admin-backend/internal/migrations/runner"
	"github.com/lumenapp/admin-backend/internal/temporalx/temporalworker"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.Temporal == nil {
		a.Log.Error("TEMPORAL_ADDRESS is required for the worker")
		os.Exit(1)
	}

	a.Start()

	migRunner := runner.New(a.DB, a.Repos.MigrationRun, a.Repos.User, a.Registry, a.Services.Notifier, a.Log)
	w, err := temporalworker.NewRunner(a.Log, a.Temporal, migRunner)
	if err != nil {
		a.Log.Error("Failed to build Temporal worker", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		a.Log.Error("Temporal worker failed to start", "error", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	a.Log.Info("Shutting down worker")
}
