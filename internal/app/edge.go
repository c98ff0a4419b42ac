package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/internal/syncsched"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/config"
	"github.com/naughtyden-us/naughty-den/pkg/config/banner"
	"github.com/naughtyden-us/naughty-den/pkg/offline"
	"github.com/naughtyden-us/naughty-den/pkg/state"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/state/shutdown"
	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
)

const (
	outboxLimit    = 50
	installRetries = 5
	installDelay   = 2 * time.Second
)

// Edge runs the offline cache worker as a caching front proxy.
type Edge struct {
	eff     config.EffectiveConfigResult
	version string

	db     *storedb.DB
	worker *offline.Worker
	opts   offline.Options
	outbox *offline.Outbox
	sched  *syncsched.Scheduler

	srvFast *fasthttp.Server
	control *http.Server
	state   string
}

// NewEdge opens the cache store and builds the worker. Nothing is fetched
// until Run.
func NewEdge(eff config.EffectiveConfigResult, version string) (*Edge, error) {
	cfg := eff.Config
	if cfg == nil {
		return nil, fmt.Errorf("effective config is nil")
	}
	if cfg.Offline.Origin == "" {
		return nil, fmt.Errorf("offline.origin is required for the edge cache")
	}
	opts, err := offline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if state.PathsVar.Store == "" {
		return nil, fmt.Errorf("state paths not initialized")
	}
	db, err := storedb.Open(state.PathsVar.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", state.PathsVar.Store, err)
	}

	e := &Edge{eff: eff, version: version, db: db, opts: opts, outbox: offline.NewOutbox(outboxLimit)}
	timeout := cfg.Offline.FetchTimeout.Duration()
	e.worker = offline.NewWorker(opts, offline.NewPebbleStorage(db),
		offline.NewHTTPFetcher(opts.Origin, timeout), e.outbox, offline.LogOpener{})

	if cfg.Offline.Sync.Enabled {
		e.sched, err = syncsched.New(cfg.Offline.Sync.Cron, func(ctx context.Context) error {
			return e.worker.HandleSync(ctx, e.opts.SyncTag)
		}, syncsched.NewFileLease(state.PathsVar.State))
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	e.srvFast = &fasthttp.Server{
		Name:                 "naughtyden-edge",
		Handler:              offline.NewProxy(e.worker, opts.Origin, timeout).Handler,
		ReadBufferSize:       64 * 1024,
		MaxRequestBodySize:   int(cfg.Uploads.MaxSize.Int64()) + bodyHeadroom,
		ReduceMemoryUsage:    true,
		ReadTimeout:          10 * time.Second,
		WriteTimeout:         timeout + 5*time.Second,
		IdleTimeout:          30 * time.Second,
		MaxKeepaliveDuration: 2 * time.Minute,
	}
	if addr := cfg.Offline.ControlListen; addr != "" {
		e.control = &http.Server{
			Addr:              addr,
			Handler:           offline.ControlRoutes(e.worker, e.outbox),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	e.state = "initialized"
	return e, nil
}

// install retries the manifest download; the proxy passes requests through
// until the worker is active.
func (e *Edge) install(ctx context.Context) {
	_, err := apperr.Retry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.worker.Install(ctx)
	}, installRetries, installDelay)
	if err != nil {
		logger.Error("edge_install_gave_up", "error", err, "phase", e.worker.Phase())
		return
	}
	if err := e.worker.Activate(ctx); err != nil {
		logger.Error("edge_activate_failed", "error", err)
	}
}

// Run serves the proxy and control listeners and blocks until ctx is
// cancelled or a listener fails.
func (e *Edge) Run(ctx context.Context) error {
	banner.Print(os.Stdout, e.eff, "edge", e.version)

	errCh := make(chan error, 2)
	go func() { errCh <- e.srvFast.ListenAndServe(e.eff.Config.Offline.Listen) }()
	if e.control != nil {
		go func() {
			if err := e.control.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}
	go e.install(ctx)
	if e.sched != nil {
		e.sched.Start(ctx)
	}
	e.state = "running"
	logger.Info("edge_started", "listen", e.eff.Config.Offline.Listen,
		"control", e.eff.Config.Offline.ControlListen, "origin", e.opts.Origin.String())

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (e *Edge) Shutdown(ctx context.Context) error {
	e.state = "shutting_down"
	err := shutdown.Run(ctx,
		shutdown.Step{Name: "sync schedule", Fn: func(context.Context) error {
			if e.sched != nil {
				e.sched.Stop()
			}
			return nil
		}},
		shutdown.Step{Name: "proxy", Fn: func(ctx context.Context) error {
			return shutdownFast(ctx, e.srvFast)
		}},
		shutdown.Step{Name: "control", Fn: func(ctx context.Context) error {
			if e.control == nil {
				return nil
			}
			return e.control.Shutdown(ctx)
		}},
		shutdown.Step{Name: "pending cache writes", Fn: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() { e.worker.Wait(); close(done) }()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		shutdown.Step{Name: "store", Fn: func(context.Context) error {
			if err := e.db.Flush(); err != nil {
				_ = e.db.Close()
				return err
			}
			return e.db.Close()
		}},
	)
	if err == nil {
		e.state = "stopped"
	}
	return err
}
