package app

import (
	"context"
	"os"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/config/banner"
)

// bodyHeadroom covers multipart framing and JSON envelopes on top of the
// largest accepted upload.
const bodyHeadroom = 64 * 1024

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	banner.Print(os.Stdout, a.eff, "api", a.versionString())
}

// handler builds the routed handler wrapped by the security gateway.
func (a *App) handler() fasthttp.RequestHandler {
	return a.handlers.Handler(a.gateway)
}

// startHTTP builds and starts the fasthttp server, returning a channel that delivers errors.
func (a *App) startHTTP(_ context.Context) <-chan error {
	cfg := a.eff.Config

	const (
		readBufferSize       = 64 * 1024        // 64 KiB read buffer per connection
		concurrency          = 0                // unlimited concurrency (0 means unlimited in fasthttp)
		readTimeout          = 10 * time.Second // timeout for reading request
		writeTimeout         = 10 * time.Second // timeout for writing response
		idleTimeout          = 30 * time.Second // max keep-alive idle duration per connection
		maxKeepaliveDuration = 2 * time.Minute  // max duration for keep-alive connection
	)
	a.srvFast = &fasthttp.Server{
		Name:                 "naughtyden",
		Handler:              a.handler(),
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(cfg.Uploads.MaxSize.Int64()) + bodyHeadroom,
		Concurrency:          concurrency,
		ReduceMemoryUsage:    true,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	errCh := make(chan error, 1)
	go func() {
		if tls := cfg.Server.TLS; tls.CertFile != "" {
			errCh <- a.srvFast.ListenAndServeTLS(a.eff.Addr, tls.CertFile, tls.KeyFile)
			return
		}
		errCh <- a.srvFast.ListenAndServe(a.eff.Addr)
	}()
	return errCh
}
