package auth

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/state"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

// SecConfig holds the request gate settings.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
}

// Gateway is the outer middleware: request log, CORS, ip whitelist,
// per-client rate limit and the panic boundary.
type Gateway struct {
	cfg      SecConfig
	limiters *limiterPool
	panics   *state.PanicWriter
}

// NewGateway builds a gateway. panics may be nil.
func NewGateway(cfg SecConfig, panics *state.PanicWriter) *Gateway {
	return &Gateway{cfg: cfg, limiters: newLimiterPool(cfg.RPS, cfg.Burst, limiterIdleTTL, limiterSweep), panics: panics}
}

// Shutdown stops the limiter cleanup loop.
func (g *Gateway) Shutdown() {
	g.limiters.Shutdown()
}

func (g *Gateway) Wrap(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := timeutil.Now()
		defer func() {
			metrics.ObserveRequest(string(ctx.Method()), ctx.Response.StatusCode(), timeutil.Now().Sub(start))
		}()
		defer g.recover(ctx)

		logger.LogRequestFast(ctx)

		// cors headers and handle options shortcut
		origin := utils.GetHeader(ctx, "Origin")
		if origin != "" && originAllowed(origin, g.cfg.AllowedOrigins) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Vary", "Origin")
			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,OPTIONS")
			ctx.Response.Header.Set("Access-Control-Max-Age", "600")
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-Session-ID,X-HMAC-SIGNATURE")
			ctx.Response.Header.Set("Access-Control-Expose-Headers", "X-Session-ID")
		}
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		if len(g.cfg.IPWhitelist) > 0 {
			ip := utils.ClientIP(ctx)
			if !ipWhitelisted(ip, g.cfg.IPWhitelist) {
				router.WriteError(ctx, apperr.Newf(apperr.ContentAccessDenied, "forbidden"))
				logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", utils.GetPath(ctx))
				return
			}
		}

		if publicAllowedPath(ctx) {
			next(ctx)
			return
		}

		if !g.limiters.Allow(clientKey(ctx)) {
			router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
			logger.Warn("rate_limited", "path", utils.GetPath(ctx), "remote", ctx.RemoteAddr().String())
			return
		}

		next(ctx)
	}
}

// recover turns a handler panic into the SYSTEM_ERROR envelope.
func (g *Gateway) recover(ctx *fasthttp.RequestCtx) {
	r := recover()
	if r == nil {
		return
	}
	stack := string(debug.Stack())
	logger.Error("handler_panic", "method", string(ctx.Method()), "path", utils.GetPath(ctx), "panic", r, "stack", stack)
	if g.panics != nil {
		report := state.PanicReport{
			Timestamp: timeutil.Now().UTC(),
			Method:    string(ctx.Method()),
			Path:      utils.GetPath(ctx),
			Value:     fmt.Sprint(r),
			Stack:     stack,
		}
		if err := g.panics.Write(report); err != nil {
			logger.Error("panic_report_failed", "error", err)
		}
	}
	ctx.Response.Reset()
	router.WriteError(ctx, apperr.New(apperr.SystemError))
}

// clientKey prefers the view session so clients behind one NAT are limited apart.
func clientKey(ctx *fasthttp.RequestCtx) string {
	if id := utils.SessionID(ctx); id != "" {
		return "s:" + id
	}
	return "ip:" + utils.ClientIP(ctx)
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}

func publicAllowedPath(ctx *fasthttp.RequestCtx) bool {
	if string(ctx.Method()) != fasthttp.MethodGet {
		return false
	}
	switch utils.GetPath(ctx) {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}
