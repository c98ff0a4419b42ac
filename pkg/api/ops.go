package api

import (
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
)

func (h *Handlers) Health(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, map[string]string{"status": "ok", "version": h.d.Version})
}

// Ready reports 503 until the store is open.
func (h *Handlers) Ready(ctx *fasthttp.RequestCtx) {
	if h.d.Ready != nil && !h.d.Ready() {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		_ = router.WriteJSON(ctx, map[string]string{"status": "not ready"})
		return
	}
	_ = router.WriteJSON(ctx, map[string]string{"status": "ready", "version": h.d.Version})
}
