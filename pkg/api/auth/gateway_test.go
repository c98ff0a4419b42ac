package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/state"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

func request(method, path string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	return &ctx
}

func ok(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) }

func TestCORSAndPreflight(t *testing.T) {
	g := NewGateway(SecConfig{AllowedOrigins: []string{"https://naughtyden.app"}}, nil)
	defer g.Shutdown()
	h := g.Wrap(ok)

	ctx := request("OPTIONS", "/api/auth/login")
	ctx.Request.Header.Set("Origin", "https://naughtyden.app")
	h(ctx)
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, "https://naughtyden.app", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))

	ctx = request("GET", "/api/creators")
	ctx.Request.Header.Set("Origin", "https://evil.example")
	h(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Empty(t, ctx.Response.Header.Peek("Access-Control-Allow-Origin"))
}

func TestRateLimitPerSession(t *testing.T) {
	g := NewGateway(SecConfig{RPS: 1, Burst: 2}, nil)
	defer g.Shutdown()
	h := g.Wrap(ok)

	send := func(session string) int {
		ctx := request("GET", "/api/creators")
		ctx.Request.Header.Set("X-Session-ID", session)
		h(ctx)
		return ctx.Response.StatusCode()
	}
	assert.Equal(t, fasthttp.StatusOK, send("a"))
	assert.Equal(t, fasthttp.StatusOK, send("a"))
	assert.Equal(t, fasthttp.StatusTooManyRequests, send("a"))
	assert.Equal(t, fasthttp.StatusOK, send("b"))

	ctx := request("GET", "/healthz")
	ctx.Request.Header.Set("X-Session-ID", "a")
	h(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), "health is never limited")
}

func TestIPWhitelist(t *testing.T) {
	g := NewGateway(SecConfig{IPWhitelist: []string{"10.0.0.1"}}, nil)
	defer g.Shutdown()
	ctx := request("GET", "/api/creators")
	g.Wrap(ok)(ctx)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
}

func TestPanicBecomesSystemError(t *testing.T) {
	dir := t.TempDir()
	pw := state.NewPanicWriter(dir)
	defer pw.Close()
	g := NewGateway(SecConfig{}, pw)
	defer g.Shutdown()

	ctx := request("POST", "/api/posts")
	g.Wrap(func(*fasthttp.RequestCtx) { panic("boom") })(ctx)

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "SYSTEM_ERROR", env.Code)

	files, err := filepath.Glob(filepath.Join(dir, "panics_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"value":"boom"`)
}

func TestLimiterSweep(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	restore := timeutil.SetClock(timeutil.Fixed(t0))
	defer restore()

	p := newLimiterPool(10, 10, time.Minute, 5*time.Millisecond)
	defer p.Shutdown()
	assert.True(t, p.Allow("k"))
	assert.True(t, p.Allow("other"))
	require.Equal(t, 2, p.size())

	assert.Zero(t, p.sweep(t0.Add(30*time.Second)))
	timeutil.SetClock(timeutil.Fixed(t0.Add(2 * time.Minute)))
	require.Eventually(t, func() bool { return p.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLimiterBurstAndDisabled(t *testing.T) {
	p := newLimiterPool(1, 2, time.Minute, time.Hour)
	defer p.Shutdown()
	assert.True(t, p.Allow("k"))
	assert.True(t, p.Allow("k"))
	assert.False(t, p.Allow("k"))
	assert.True(t, p.Allow("fresh"))

	off := newLimiterPool(0, 0, time.Minute, time.Hour)
	defer off.Shutdown()
	for i := 0; i < 100; i++ {
		require.True(t, off.Allow("k"))
	}
}
