package offline

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

const outcomeHeader = "X-Offline-Cache"

var extDestination = map[string]Destination{
	"png": DestImage, "jpg": DestImage, "jpeg": DestImage, "gif": DestImage,
	"svg": DestImage, "webp": DestImage, "ico": DestImage,
	"js": DestScript, "mjs": DestScript,
	"css":  DestStyle,
	"woff": DestFont, "woff2": DestFont, "ttf": DestFont, "otf": DestFont,
}

// Proxy serves intercepted requests through a Worker.
type Proxy struct {
	worker  *Worker
	origin  *url.URL
	timeout time.Duration
}

func NewProxy(w *Worker, origin *url.URL, timeout time.Duration) *Proxy {
	return &Proxy{worker: w, origin: origin, timeout: timeout}
}

// RequestFromCtx maps an incoming fasthttp request onto origin.
func RequestFromCtx(ctx *fasthttp.RequestCtx, origin *url.URL) (*Request, error) {
	ref, err := url.ParseRequestURI(string(ctx.RequestURI()))
	if err != nil {
		return nil, err
	}
	u := origin.ResolveReference(ref)

	req := &Request{
		Method: string(ctx.Method()),
		URL:    u,
		Header: http.Header{},
		Mode:   ModeCORS,
	}
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		req.Header.Add(string(k), string(v))
	})
	if b := ctx.PostBody(); len(b) > 0 {
		req.Body = append([]byte(nil), b...)
	}

	switch m := req.Header.Get("Sec-Fetch-Mode"); {
	case m != "":
		req.Mode = Mode(m)
	case req.Method == http.MethodGet && strings.Contains(req.Header.Get("Accept"), "text/html"):
		req.Mode = ModeNavigate
	}

	if d := req.Header.Get("Sec-Fetch-Dest"); d != "" && d != "empty" {
		req.Destination = Destination(d)
	} else if req.Mode == ModeNavigate {
		req.Destination = DestDocument
	} else {
		req.Destination = extDestination[strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")]
	}
	return req, nil
}

// Handler is the fasthttp entry point.
func (p *Proxy) Handler(ctx *fasthttp.RequestCtx) {
	req, err := RequestFromCtx(ctx, p.origin)
	if err != nil {
		ctx.Error("bad request uri", fasthttp.StatusBadRequest)
		return
	}

	c, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	resp, outcome, err := p.worker.Fetch(c, req)
	if err != nil {
		appErr := apperr.Translate(err)
		logger.Warn("edge_fetch_failed", "url", req.URL.String(), "code", appErr.Code, "error", err)
		ctx.Error(appErr.Message, appErr.Code.HTTPStatus())
		ctx.Response.Header.Set(outcomeHeader, string(outcome))
		return
	}
	if resp == nil {
		ctx.Error("empty upstream response", fasthttp.StatusBadGateway)
		ctx.Response.Header.Set(outcomeHeader, string(outcome))
		return
	}
	writeResponse(ctx, resp)
	ctx.Response.Header.Set(outcomeHeader, string(outcome))
}

func writeResponse(ctx *fasthttp.RequestCtx, resp *Response) {
	ctx.SetStatusCode(resp.Status)
	for k, vs := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			ctx.Response.Header.Add(k, v)
		}
	}
	ctx.SetBody(resp.Body)
}
