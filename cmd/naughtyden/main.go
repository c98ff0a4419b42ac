package main

import (
	"context"
	"time"

	"github.com/naughtyden-us/naughty-den/internal/app"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/state/shutdown"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 20 * time.Second

func main() {
	eff := app.Bootstrap("database")
	defer logger.Sync()

	srv, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("failed to initialize app", err, eff.DBPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()
	runErr := srv.Run(ctx)

	// bounded so teardown cannot hang forever
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if runErr != nil {
		shutdown.Abort("app run failed", runErr, eff.DBPath)
	}
}
