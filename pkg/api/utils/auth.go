package utils

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "nd_session"
)

// ExtractBearer returns the token of an "Authorization: Bearer <token>" header.
func ExtractBearer(ctx *fasthttp.RequestCtx) string {
	auth := GetHeader(ctx, "Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.Fields(auth)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// SessionID returns the view session id from the header, else the cookie.
func SessionID(ctx *fasthttp.RequestCtx) string {
	if id := GetHeader(ctx, SessionHeader); id != "" {
		return id
	}
	return GetCookie(ctx, SessionCookie)
}

// SetSessionID echoes the session id back as header and cookie.
func SetSessionID(ctx *fasthttp.RequestCtx, id string) {
	ctx.Response.Header.Set(SessionHeader, id)
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(SessionCookie)
	c.SetValue(id)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	ctx.Response.Header.SetCookie(c)
}

// ClientIP returns the remote host without port.
func ClientIP(ctx *fasthttp.RequestCtx) string {
	host := ctx.RemoteAddr().String()
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}
