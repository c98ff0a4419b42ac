package utils

import (
	"github.com/valyala/fasthttp"
)

// GetPath returns the request path as string
func GetPath(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Path())
}
