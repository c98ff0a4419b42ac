package utils

import (
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
)

// GetHeader returns header value with trimming
func GetHeader(ctx *fasthttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(key)))
}

// GetCookie returns a request cookie value with trimming
func GetCookie(ctx *fasthttp.RequestCtx, name string) string {
	return strings.TrimSpace(string(ctx.Request.Header.Cookie(name)))
}

// GetQuery returns query parameter value with trimming
func GetQuery(ctx *fasthttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(key)))
}

// GetQueryInt returns query parameter value as integer, with default fallback
func GetQueryInt(ctx *fasthttp.RequestCtx, key string, defaultValue int) int {
	value := GetQuery(ctx, key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

// GetPathParam returns path parameter value
func GetPathParam(ctx *fasthttp.RequestCtx, param string) string {
	if s, ok := ctx.UserValue(param).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// GetPathParamInt returns path parameter value as integer and whether it parsed
func GetPathParamInt(ctx *fasthttp.RequestCtx, param string) (int, bool) {
	n, err := strconv.Atoi(GetPathParam(ctx, param))
	if err != nil {
		return 0, false
	}
	return n, true
}
