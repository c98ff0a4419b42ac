package offline

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func serve(p *Proxy, method, uri string, headers map[string]string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	p.Handler(&ctx)
	return &ctx
}

func TestRequestFromCtx(t *testing.T) {
	o, _ := url.Parse(origin)
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/creators?id=3")
	ctx.Request.Header.Set("Accept", "text/html,application/xhtml+xml")

	req, err := RequestFromCtx(&ctx, o)
	require.NoError(t, err)
	assert.Equal(t, origin+"/creators?id=3", req.URL.String())
	assert.Equal(t, ModeNavigate, req.Mode)
	assert.Equal(t, DestDocument, req.Destination)

	ctx.Request.Reset()
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.SetRequestURI("/img/a.webp")
	req, err = RequestFromCtx(&ctx, o)
	require.NoError(t, err)
	assert.Equal(t, ModeCORS, req.Mode)
	assert.Equal(t, DestImage, req.Destination)

	ctx.Request.Header.Set("Sec-Fetch-Dest", "script")
	ctx.Request.Header.Set("Sec-Fetch-Mode", "no-cors")
	req, err = RequestFromCtx(&ctx, o)
	require.NoError(t, err)
	assert.Equal(t, ModeNoCORS, req.Mode)
	assert.Equal(t, DestScript, req.Destination)
}

func TestProxyServesCacheThenNetwork(t *testing.T) {
	net := newFakeNet()
	net.set(origin+"/api/creators", &Response{Status: 200, Type: TypeBasic, Header: http.Header{"Content-Type": {"application/json"}}, Body: []byte(`[]`)})
	w := activeWorker(t, NewMemoryStorage(), net)
	o, _ := url.Parse(origin)
	p := NewProxy(w, o, time.Second)

	ctx := serve(p, "GET", "/api/creators", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, string(OutcomeNetworkStored), string(ctx.Response.Header.Peek(outcomeHeader)))
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	w.Wait()

	ctx = serve(p, "GET", "/api/creators", nil)
	assert.Equal(t, string(OutcomeCacheHit), string(ctx.Response.Header.Peek(outcomeHeader)))
	assert.Equal(t, "[]", string(ctx.Response.Body()))
}

func TestProxyOfflineErrors(t *testing.T) {
	net := newFakeNet()
	w := activeWorker(t, NewMemoryStorage(), net)
	net.offline = true
	o, _ := url.Parse(origin)
	p := NewProxy(w, o, time.Second)

	ctx := serve(p, "GET", "/anything", map[string]string{"Accept": "text/html"})
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "asset /", string(ctx.Response.Body()))

	ctx = serve(p, "GET", "/api/x", nil)
	assert.Equal(t, http.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, string(OutcomeFailed), string(ctx.Response.Header.Peek(outcomeHeader)))
}

func TestHTTPFetcherTypesResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Method", r.Method)
		_, _ = w.Write([]byte("hello " + r.URL.Path))
	}))
	defer srv.Close()

	o, _ := url.Parse(srv.URL)
	f := NewHTTPFetcher(o, 2*time.Second)

	req, err := NewGet(srv.URL + "/ping")
	require.NoError(t, err)
	resp, err := f.Fetch(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, TypeBasic, resp.Type)
	assert.Equal(t, "hello /ping", string(resp.Body))
	assert.Equal(t, "GET", resp.Header.Get("X-Seen-Method"))

	other, _ := url.Parse("http://elsewhere.test")
	cross := NewHTTPFetcher(other, 2*time.Second)
	resp, err = cross.Fetch(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, TypeCORS, resp.Type)

	post, _ := NewGet(srv.URL + "/submit")
	post.Method = "POST"
	post.Body = []byte("x=1")
	resp, err = f.Fetch(t.Context(), post)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Header.Get("X-Seen-Method"), "POST"))
}
