package main

import (
	"context"
	"time"

	"github.com/naughtyden-us/naughty-den/internal/app"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/state/shutdown"
)

var version = "dev"

func main() {
	// separate default folder: pebble allows one process per directory
	eff := app.Bootstrap("edgecache")
	defer logger.Sync()

	edge, err := app.NewEdge(eff, version)
	if err != nil {
		shutdown.Abort("failed to initialize edge cache", err, eff.DBPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()
	runErr := edge.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	_ = edge.Shutdown(shutdownCtx)
	if runErr != nil {
		shutdown.Abort("edge run failed", runErr, eff.DBPath)
	}
}
