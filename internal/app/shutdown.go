package app

import (
	"context"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/state/shutdown"
)

func (a *App) Shutdown(ctx context.Context) error {
	a.state = "shutting_down"
	err := shutdown.Run(ctx,
		shutdown.Step{Name: "http server", Fn: func(ctx context.Context) error {
			if a.srvFast == nil {
				return nil
			}
			return shutdownFast(ctx, a.srvFast)
		}},
		shutdown.Step{Name: "sessions", Fn: func(context.Context) error {
			if a.sweepCancel != nil {
				a.sweepCancel()
			}
			a.sessions.Close()
			return nil
		}},
		shutdown.Step{Name: "gateway", Fn: func(context.Context) error {
			a.gateway.Shutdown()
			return nil
		}},
		shutdown.Step{Name: "panic writer", Fn: func(context.Context) error {
			return a.panics.Close()
		}},
		shutdown.Step{Name: "store", Fn: func(context.Context) error {
			if err := a.db.Flush(); err != nil {
				_ = a.db.Close()
				return err
			}
			return a.db.Close()
		}},
	)
	if err == nil {
		a.state = "stopped"
	}
	return err
}

// shutdownFast waits for in-flight requests or gives up when ctx ends.
func shutdownFast(ctx context.Context, srv *fasthttp.Server) error {
	done := make(chan error, 1)
	go func() { done <- srv.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
