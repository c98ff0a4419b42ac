package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestSessionIDPrefersHeader(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetCookie(SessionCookie, "from-cookie")
	assert.Equal(t, "from-cookie", SessionID(&ctx))
	ctx.Request.Header.Set(SessionHeader, "from-header")
	assert.Equal(t, "from-header", SessionID(&ctx))
}

func TestSetSessionID(t *testing.T) {
	var ctx fasthttp.RequestCtx
	SetSessionID(&ctx, "abc")
	assert.Equal(t, "abc", string(ctx.Response.Header.Peek(SessionHeader)))
	assert.Contains(t, string(ctx.Response.Header.Peek("Set-Cookie")), "nd_session=abc")
}

func TestQueryAndParams(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/api/posts?page=2&limit=x")
	req := ParsePageRequest(&ctx)
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, 0, req.Limit)
	assert.Equal(t, "/api/posts", GetPath(&ctx))

	ctx.SetUserValue("id", " 7 ")
	n, ok := GetPathParamInt(&ctx, "id")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = GetPathParamInt(&ctx, "missing")
	assert.False(t, ok)
}

func TestExtractBearer(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer   tok")
	assert.Equal(t, "tok", ExtractBearer(&ctx))
	ctx.Request.Header.Set("Authorization", "Basic x")
	assert.Equal(t, "", ExtractBearer(&ctx))
}
