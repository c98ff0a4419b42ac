package api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/auth"
	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/content"
	"github.com/naughtyden-us/naughty-den/pkg/identity"
	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/moderation"
	mux "github.com/naughtyden-us/naughty-den/pkg/router"
	"github.com/naughtyden-us/naughty-den/pkg/verification"
	"github.com/naughtyden-us/naughty-den/pkg/viewstate"
)

// Deps are the collaborators the API handlers read and write through.
type Deps struct {
	Catalog  *content.Catalog
	Profiles *identity.ProfileStore
	Files    *identity.FileStore
	Reports  *moderation.Reports
	Sessions *viewstate.Registry
	Verifier verification.Adapter

	// VerifySecret signs vendor webhooks; empty disables the check.
	VerifySecret string
	Ready        func() bool
	StaticDir    string
	Version      string
}

// Handlers serves the JSON API, the ops endpoints and the static shell.
type Handlers struct {
	d      Deps
	static fasthttp.RequestHandler
	routes *mux.Router
}

func New(d Deps) *Handlers {
	h := &Handlers{d: d}
	if d.StaticDir != "" {
		fs := &fasthttp.FS{
			Root:               d.StaticDir,
			IndexNames:         []string{"index.html"},
			GenerateIndexPages: false,
			AcceptByteRange:    true,
			PathNotFound:       h.shellFallback,
		}
		h.static = fs.NewRequestHandler()
	}
	return h
}

// RegisterRoutes wires all API routes onto the provided router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	h.routes = r

	g := r.Group("/api")

	// auth forms
	g.POST("/auth/login", h.Login)
	g.POST("/auth/register", h.Register)

	// view session
	sess := g.Group("/session")
	sess.GET("", h.GetSession)
	sess.POST("/actions", h.SessionAction)
	sess.POST("/signin", h.SessionSignIn)
	sess.POST("/signout", h.SessionSignOut)
	sess.POST("/creator", h.SessionToggleCreator)
	sess.PUT("/profile", h.SessionSaveProfile)

	// content
	g.GET("/creators", h.ListCreators)
	g.GET("/creators/{id}", h.GetCreator)
	g.POST("/creators/{id}/like", h.LikeCreator)
	posts := g.Group("/posts")
	posts.GET("", h.ListPosts)
	posts.POST("", h.CreatePost)
	posts.GET("/{id}", h.GetPost)
	posts.POST("/{id}/like", h.LikePost)
	posts.POST("/{id}/comments", h.AddComment)
	posts.POST("/{id}/comments/{commentId}/like", h.LikeComment)

	// profiles and uploads
	g.GET("/profile/{uid}", h.GetProfile)
	g.PUT("/profile/{uid}", h.UpdateProfile)
	g.POST("/uploads/{uid}", h.Upload)
	r.GET("/files/{uid}/{name}", h.ServeFile)

	mod := g.Group("/moderation")
	mod.POST("/report", h.SubmitReport)
	mod.GET("/reports/{id}", h.GetReport)
	mod.PUT("/reports/{id}", h.ResolveReport)
	mod.GET("/stats", h.ReportStats)

	// identity verification
	g.POST("/kyc/sessions", h.StartVerification)
	g.POST("/kyc/webhook", h.VerificationWebhook)

	// ops
	r.GET("/healthz", h.Health)
	r.GET("/readyz", h.Ready)
	r.GET("/metrics", metrics.Handler())

	r.NotFound(h.notFound)
}

// Handler builds the router and wraps it in the gateway.
func (h *Handlers) Handler(gw *auth.Gateway) fasthttp.RequestHandler {
	r := mux.New()
	h.RegisterRoutes(r)
	if gw == nil {
		return r.Handler
	}
	return gw.Wrap(r.Handler)
}

func (h *Handlers) notFound(ctx *fasthttp.RequestCtx) {
	path := utils.GetPath(ctx)
	if h.routes != nil && len(h.routes.Allowed(path)) > 0 {
		router.WriteJSONError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	method := string(ctx.Method())
	isAPI := strings.HasPrefix(path, "/api/")
	if h.static != nil && !isAPI && (method == fasthttp.MethodGet || method == fasthttp.MethodHead) {
		h.static(ctx)
		return
	}
	router.WriteError(ctx, apperr.New(apperr.ContentNotFound))
}

// shellFallback serves index.html for unknown client routes so the
// single page shell can take over.
func (h *Handlers) shellFallback(ctx *fasthttp.RequestCtx) {
	index := filepath.Join(h.d.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		router.WriteError(ctx, apperr.New(apperr.ContentNotFound))
		return
	}
	ctx.Response.Reset()
	ctx.SendFile(index)
}
