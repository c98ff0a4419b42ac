package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api"
	"github.com/naughtyden-us/naughty-den/pkg/api/auth"
	"github.com/naughtyden-us/naughty-den/pkg/config"
	"github.com/naughtyden-us/naughty-den/pkg/content"
	"github.com/naughtyden-us/naughty-den/pkg/identity"
	"github.com/naughtyden-us/naughty-den/pkg/moderation"
	"github.com/naughtyden-us/naughty-den/pkg/state"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
	"github.com/naughtyden-us/naughty-den/pkg/verification"
	"github.com/naughtyden-us/naughty-den/pkg/viewstate"
)

const sweepInterval = time.Minute

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	db       *storedb.DB
	sessions *viewstate.Registry
	gateway  *auth.Gateway
	panics   *state.PanicWriter
	handlers *api.Handlers

	srvFast     *fasthttp.Server
	sweepCancel context.CancelFunc
	state       string
}

// New sets up resources that don't need a running context (db, stores,
// session registry). Call Run to start serving.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	logger.LogConfigSummary("config_app_summary", []string{
		fmt.Sprintf("boot_delay: %s", cfg.App.BootDelay.Duration()),
		fmt.Sprintf("session_idle_ttl: %s", cfg.App.SessionIdleTTL.Duration()),
		fmt.Sprintf("upload_max_size: %s", humanize.IBytes(uint64(cfg.Uploads.MaxSize.Int64()))),
		fmt.Sprintf("rate_limit: %.0f rps, burst %s", cfg.Security.RateLimit.RPS, humanize.Comma(int64(cfg.Security.RateLimit.Burst))),
	})

	// open store (caller ensures directories exist)
	if state.PathsVar.Store == "" {
		return nil, fmt.Errorf("state paths not initialized")
	}
	db, err := storedb.Open(state.PathsVar.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", state.PathsVar.Store, err)
	}

	authn := identity.NewAuthenticator(db, identity.AuthConfig{
		TokenSecret: cfg.Auth.TokenSecret,
		TokenIssuer: cfg.Auth.TokenIssuer,
		TokenTTL:    cfg.Auth.TokenTTL.Duration(),
		BcryptCost:  cfg.Auth.BcryptCost,
	})
	profiles := identity.NewProfileStore(db)
	catalog := content.NewSeeded()
	verifier := verification.NewVeriff(cfg.Verification.Timeout.Duration())

	opts := viewstate.Options{
		BootDelay:  cfg.App.BootDelay.Duration(),
		DeclineURL: cfg.App.DeclineURL,
		Verification: verification.SessionConfig{
			Host:    cfg.Verification.Host,
			APIKey:  cfg.Verification.APIKey,
			MountID: cfg.Verification.MountID,
		},
		Retries: 3,
	}
	sessions := viewstate.NewRegistry(func(id string) *viewstate.Session {
		return viewstate.NewSession(id, opts, viewstate.Deps{
			Profiles:  profiles,
			Auth:      authn.Client(),
			Verifier:  verifier,
			Persister: viewstate.NewStorePersister(db, id),
			Content:   catalog,
		})
	}, cfg.App.SessionIdleTTL.Duration())

	panics := state.NewPanicWriter(state.PathsVar.Crash)
	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		db:        db,
		sessions:  sessions,
		panics:    panics,
		gateway: auth.NewGateway(auth.SecConfig{
			AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
			RPS:            cfg.Security.RateLimit.RPS,
			Burst:          cfg.Security.RateLimit.Burst,
			IPWhitelist:    append([]string{}, cfg.Security.IPWhitelist...),
		}, panics),
	}
	a.handlers = api.New(api.Deps{
		Catalog:      catalog,
		Profiles:     profiles,
		Files:        identity.NewFileStore(state.PathsVar.Blobs, cfg.Uploads.MaxSize.Int64(), cfg.Uploads.AllowedTypes),
		Reports:      moderation.NewReports(db),
		Sessions:     sessions,
		Verifier:     verifier,
		VerifySecret: cfg.Verification.SharedSecret,
		Ready:        db.Ready,
		StaticDir:    cfg.Server.StaticDir,
		Version:      a.versionString(),
	})
	a.state = "initialized"
	return a, nil
}

// Run starts the session sweeper and the http server, and blocks until ctx
// is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	sweepCtx, cancel := context.WithCancel(ctx)
	a.sweepCancel = cancel
	go a.sessions.Run(sweepCtx, sweepInterval)

	errCh := a.startHTTP(ctx)
	a.state = "running"
	logger.Info("server_started", "addr", a.eff.Addr, "version", a.versionString())

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) versionString() string {
	v := a.version
	if v == "" {
		v = "dev"
	}
	if a.commit != "" && a.commit != "none" {
		v += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		v += " @ " + a.buildDate
	}
	return v
}
